package bujo

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/dagaz/internal/models"
)

var (
	atTimeRe = regexp.MustCompile(`(?i)^(.+?)\s*@\s*\d{1,2}:\d{2}\s*(?:am|pm)?\s*$`)
	mealRe   = regexp.MustCompile(`(?i)^(.+?\s+for\s+(?:breakfast|brunch|lunch|dinner|coffee|drinks))\s*@\s*\S.*$`)
	pctRe    = regexp.MustCompile(`^(\d{1,3})%\s+(?:for\s+|on\s+)?(\S.*)$`)

	actionVerbRe = regexp.MustCompile(`(?i)^(?:pick up|make|finish|buy|call|email|text|get|send|schedule|clean|fix|review|submit|order|book|pay|write)\b`)
	mediaVerbRe  = regexp.MustCompile(`(?i)^(?:started|finished|watching|reading|listening to)\b`)
	keywordRe    = regexp.MustCompile(`(?i)\b(?:need to|have to|must|remember to|don't forget|todo)\b`)
)

type heuristicRule struct {
	name  string
	apply func(line string) (classification, string, bool)
}

// heuristicRules is the ordered natural-language fallback table, attempted
// only after every bullet rule has failed. First match wins.
var heuristicRules = []heuristicRule{
	{"at-time-event", matchAtTime},
	{"meal-event", matchMeal},
	{"percent-task", matchPercent},
	{"action-verb-task", matchActionVerb},
	{"media-verb-note", matchMediaVerb},
	{"sentence-task", matchSentenceTask},
	{"fallback-note", matchFallbackNote},
}

func matchHeuristic(line string) (classification, string, bool) {
	for _, r := range heuristicRules {
		if cls, content, ok := r.apply(line); ok {
			return cls, content, true
		}
	}
	return classification{}, "", false
}

// "Team meeting @ 2:00 PM" — event; the due time is picked up by the
// generic time-token scan in buildEntry.
func matchAtTime(line string) (classification, string, bool) {
	m := atTimeRe.FindStringSubmatch(line)
	if m == nil {
		return classification{}, "", false
	}
	return classification{models.TypeEvent, models.StatusIncomplete, models.PriorityNone, false}, m[1], true
}

// "Tom for lunch @ noon" — event even when the time is not a clock token.
func matchMeal(line string) (classification, string, bool) {
	m := mealRe.FindStringSubmatch(line)
	if m == nil {
		return classification{}, "", false
	}
	return classification{models.TypeEvent, models.StatusIncomplete, models.PriorityNone, false}, m[1], true
}

// "80% for project report" — in-progress task; 100% means done.
func matchPercent(line string) (classification, string, bool) {
	m := pctRe.FindStringSubmatch(line)
	if m == nil {
		return classification{}, "", false
	}
	n, _ := strconv.Atoi(m[1])
	if n > 100 {
		return classification{}, "", false
	}
	cls := classification{models.TypeTask, models.StatusIncomplete, models.PriorityNone, false}
	if n == 100 {
		cls.status = models.StatusComplete
		cls.glyphStatus = true
	}
	return cls, m[2], true
}

func matchActionVerb(line string) (classification, string, bool) {
	if !actionVerbRe.MatchString(line) {
		return classification{}, "", false
	}
	return classification{models.TypeTask, models.StatusIncomplete, models.PriorityNone, false}, line, true
}

func matchMediaVerb(line string) (classification, string, bool) {
	if !mediaVerbRe.MatchString(line) {
		return classification{}, "", false
	}
	return classification{models.TypeNote, models.StatusIncomplete, models.PriorityNone, false}, line, true
}

func matchSentenceTask(line string) (classification, string, bool) {
	first, _ := utf8.DecodeRuneInString(line)
	if !unicode.IsUpper(first) && !keywordRe.MatchString(line) {
		return classification{}, "", false
	}
	return classification{models.TypeTask, models.StatusIncomplete, models.PriorityNone, false}, line, true
}

// Anything longer than a stray OCR fragment is kept as a note.
func matchFallbackNote(line string) (classification, string, bool) {
	if utf8.RuneCountInString(strings.TrimSpace(line)) <= 5 {
		return classification{}, "", false
	}
	return classification{models.TypeNote, models.StatusIncomplete, models.PriorityNone, false}, line, true
}
