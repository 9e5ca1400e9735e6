package bujo

import (
	"regexp"

	"github.com/starford/dagaz/internal/models"
)

// classification is what a matched rule asserts about a line.
type classification struct {
	entryType models.EntryType
	status    models.EntryStatus
	priority  models.Priority
	// glyphStatus is set when the bullet variant itself fixed the status,
	// so lexical completion cues must not override it.
	glyphStatus bool
}

type bulletRule struct {
	name string
	re   *regexp.Regexp
	cls  classification
}

// bulletRules is the ordered symbol table for the official bullet-journal
// taxonomy. Priority-signified bullets (a `*` immediately before a task,
// event, or note glyph) are tested before the plain glyphs; within each tier
// the order below is the tie-break. First match wins.
var bulletRules = []bulletRule{
	{"priority-task", regexp.MustCompile(`^\*\s*[•·▪‣]\s*(\S.*)$`),
		classification{models.TypeTask, models.StatusIncomplete, models.PriorityHigh, false}},
	{"priority-event", regexp.MustCompile(`^\*\s*(?:[○Ø]\s*|[oO0]\s+)(\S.*)$`),
		classification{models.TypeEvent, models.StatusIncomplete, models.PriorityHigh, false}},
	{"priority-note", regexp.MustCompile(`^\*\s*[-–—−]\s*(\S.*)$`),
		classification{models.TypeNote, models.StatusIncomplete, models.PriorityHigh, false}},

	{"task", regexp.MustCompile(`^[•·▪‣]\s*(\S.*)$`),
		classification{models.TypeTask, models.StatusIncomplete, models.PriorityNone, false}},
	{"task-complete", regexp.MustCompile(`^[xX✓✔×]\.?\s+(\S.*)$`),
		classification{models.TypeTask, models.StatusComplete, models.PriorityNone, true}},
	{"task-migrated", regexp.MustCompile(`^[>→➜]\s*(\S.*)$`),
		classification{models.TypeTask, models.StatusMigrated, models.PriorityNone, true}},
	{"task-scheduled", regexp.MustCompile(`^[<←⬅]\s*(\S.*)$`),
		classification{models.TypeTask, models.StatusScheduled, models.PriorityNone, true}},
	{"task-cancelled", regexp.MustCompile(`^~\s*(\S.*)$`),
		classification{models.TypeTask, models.StatusCancelled, models.PriorityNone, true}},
	{"event", regexp.MustCompile(`^(?:[○Ø]\s*|[oO0]\s+)(\S.*)$`),
		classification{models.TypeEvent, models.StatusIncomplete, models.PriorityNone, false}},
	{"note", regexp.MustCompile(`^[-–—−]\s*(\S.*)$`),
		classification{models.TypeNote, models.StatusIncomplete, models.PriorityNone, false}},
	{"inspiration", regexp.MustCompile(`^!\s*([^!\s].*)$`),
		classification{models.TypeInspiration, models.StatusIncomplete, models.PriorityNone, false}},
}

// matchBullet returns the classification and remaining raw content for the
// first bullet rule that matches the line.
func matchBullet(line string) (classification, string, bool) {
	for _, r := range bulletRules {
		if m := r.re.FindStringSubmatch(line); m != nil {
			return r.cls, m[1], true
		}
	}
	return classification{}, "", false
}
