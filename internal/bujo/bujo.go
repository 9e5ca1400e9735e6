// Package bujo converts raw OCR text into structured bullet-journal entries.
//
// Parsing is line oriented and stateful only within a single call: date-header
// lines update a date cursor that subsequent entries are filed under, and every
// other non-blank line is classified first against the bullet symbol table and
// then against the natural-language heuristics.
package bujo

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dagaz/internal/models"
)

var (
	tagRe     = regexp.MustCompile(`#([A-Za-z][A-Za-z0-9_-]*)`)
	contextRe = regexp.MustCompile(`@([A-Za-z][A-Za-z0-9_-]*)`)

	trailingMarkerRe = regexp.MustCompile(`[!*\s]+$`)
	trailingPriRe    = regexp.MustCompile(`(\*{1,2}|!{1,2})\s*$`)
	multiSpaceRe     = regexp.MustCompile(`\s{2,}`)
	completionCueRe  = regexp.MustCompile(`(?i)\b(?:done|completed|finished)\b|100%`)
)

// implicitContexts infers a context from plain words when no @token is present.
var implicitContexts = []struct {
	re      *regexp.Regexp
	context string
}{
	{regexp.MustCompile(`(?i)\b(?:work|office)\b`), "work"},
	{regexp.MustCompile(`(?i)\bhome\b`), "home"},
}

// Parser turns text into entries. The zero value is not usable; construct
// with New. The clock is injectable so date-header-less input parses
// deterministically in tests.
type Parser struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithNow overrides the clock used for "today" and entry creation times.
func WithNow(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithLogger sets the logger used for skipped-line diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// New creates a Parser with the given options.
func New(opts ...Option) *Parser {
	p := &Parser{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// dateContext tracks the date cursor across lines of one Parse call.
type dateContext struct {
	today    time.Time
	explicit *time.Time
}

func (c *dateContext) reference() time.Time {
	if c.explicit != nil {
		return *c.explicit
	}
	return c.today
}

// Parse converts raw text into ordered structured entries. It never fails:
// blank input yields an empty slice, and a line that cannot be processed is
// logged and skipped rather than aborting the parse. Output order follows
// input line order.
func (p *Parser) Parse(text string) []models.Entry {
	entries := []models.Entry{}
	if strings.TrimSpace(text) == "" {
		return entries
	}
	dc := dateContext{today: p.now()}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if e, ok := p.parseLine(line, &dc); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// parseLine classifies one line. Date headers update the cursor and emit
// nothing. A panic while handling the line is contained here.
func (p *Parser) parseLine(line string, dc *dateContext) (entry models.Entry, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("parser: skipping line",
				slog.String("line", line), slog.Any("reason", r))
			ok = false
		}
	}()

	if d, matched := parseDateHeader(line, dc.reference()); matched {
		dc.explicit = &d
		return models.Entry{}, false
	}

	cls, content, matched := matchBullet(line)
	if !matched {
		cls, content, matched = matchHeuristic(line)
	}
	if !matched {
		return models.Entry{}, false
	}

	e := p.buildEntry(cls, content, line, dc.reference())
	if e.Content == "" {
		// Nothing left after cleaning (e.g. a bare "#tag" line).
		return models.Entry{}, false
	}
	return e, true
}

// buildEntry assembles the structured entry for a classified line. content is
// the raw text after the bullet glyph (or the heuristic capture); line is the
// full trimmed line, used for tag/context/priority/time scans.
func (p *Parser) buildEntry(cls classification, content, line string, ref time.Time) models.Entry {
	priority := cls.priority
	if priority == models.PriorityNone {
		priority = detectPriority(line)
	}

	status := cls.status
	if cls.entryType == models.TypeTask && !cls.glyphStatus && completionCueRe.MatchString(line) {
		status = models.StatusComplete
	}

	e := models.Entry{
		ID:             uuid.NewString(),
		Type:           cls.entryType,
		Status:         status,
		Content:        cleanContent(content),
		Priority:       priority,
		Contexts:       extractContexts(line),
		Tags:           extractTags(line),
		Collection:     models.CollectionDaily,
		CollectionDate: ref.Format("2006-01-02"),
		CreatedAt:      p.now(),
	}

	if hour, minute, ok := parseTimeToken(line); ok {
		due := time.Date(ref.Year(), ref.Month(), ref.Day(), hour, minute, 0, 0, ref.Location())
		e.DueDate = &due
	}
	return e
}

// detectPriority applies the punctuation cues. A double bang anywhere or a
// trailing asterisk run means high; a lone bang means medium. The signifier
// tier never reaches here (it fixes high before classification).
func detectPriority(line string) models.Priority {
	if strings.Contains(line, "!!") {
		return models.PriorityHigh
	}
	if m := trailingPriRe.FindStringSubmatch(line); m != nil {
		if strings.HasPrefix(m[1], "*") {
			return models.PriorityHigh
		}
		return models.PriorityMedium
	}
	if strings.Count(line, "!") == 1 {
		return models.PriorityMedium
	}
	return models.PriorityNone
}

func extractTags(line string) []string {
	return collectTokens(tagRe, line)
}

func extractContexts(line string) []string {
	out := collectTokens(contextRe, line)
	for _, ic := range implicitContexts {
		if ic.re.MatchString(line) {
			out = appendUnique(out, ic.context)
		}
	}
	return out
}

// collectTokens lowercases regexp captures and deduplicates while preserving
// first-seen order.
func collectTokens(re *regexp.Regexp, line string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(line, -1) {
		out = appendUnique(out, strings.ToLower(m[1]))
	}
	return out
}

func appendUnique(list []string, tok string) []string {
	for _, t := range list {
		if t == tok {
			return list
		}
	}
	return append(list, tok)
}

// cleanContent strips tags, contexts, and priority punctuation from the
// matched remainder and collapses the leftover whitespace.
func cleanContent(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = contextRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "!!", "")
	s = trailingMarkerRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
