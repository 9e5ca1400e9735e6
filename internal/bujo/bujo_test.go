package bujo

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/models"
)

// fixedNow pins the clock to a Tuesday in mid-2025 so date-header-less input
// parses deterministically.
var fixedNow = time.Date(2025, time.June, 10, 9, 30, 0, 0, time.Local)

func testParser() *Parser {
	return New(WithNow(func() time.Time { return fixedNow }))
}

func parseOne(t *testing.T, text string) models.Entry {
	t.Helper()
	entries := testParser().Parse(text)
	if len(entries) != 1 {
		t.Fatalf("Parse(%q) produced %d entries, want 1", text, len(entries))
	}
	return entries[0]
}

func TestParse_EmptyInput(t *testing.T) {
	p := testParser()
	for _, in := range []string{"", "   ", "\n\n\n", " \t \n  "} {
		if got := p.Parse(in); len(got) != 0 {
			t.Errorf("Parse(%q) = %d entries, want 0", in, len(got))
		}
	}
}

func TestParse_DateHeaderThenTask(t *testing.T) {
	entries := testParser().Parse("March 15th\n• Buy milk")
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (date header must not emit)", len(entries))
	}
	e := entries[0]
	if e.CollectionDate != "2025-03-15" {
		t.Errorf("collection date = %q, want 2025-03-15", e.CollectionDate)
	}
	if e.Type != models.TypeTask || e.Status != models.StatusIncomplete {
		t.Errorf("type/status = %s/%s", e.Type, e.Status)
	}
	if e.Content != "Buy milk" {
		t.Errorf("content = %q, want %q", e.Content, "Buy milk")
	}
}

func TestParse_DateHeaderForms(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"15th", "2025-06-15"},
		{"3rd", "2025-06-03"},
		{"March 15th", "2025-03-15"},
		{"Mar 2", "2025-03-02"},
		{"December 31, 2024", "2024-12-31"},
		{"3/15/25", "2025-03-15"},
		{"3-15-2025", "2025-03-15"},
		{"12/1/24", "2024-12-01"},
	}
	for _, tc := range cases {
		e := parseOne(t, tc.header+"\n• task under header")
		if e.CollectionDate != tc.want {
			t.Errorf("header %q: collection date = %q, want %q", tc.header, e.CollectionDate, tc.want)
		}
	}
}

func TestParse_DateContextPropagates(t *testing.T) {
	text := "March 15th\n• first\n• second\n16th\n• third"
	entries := testParser().Parse(text)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].CollectionDate != "2025-03-15" || entries[1].CollectionDate != "2025-03-15" {
		t.Errorf("first two dates = %q, %q", entries[0].CollectionDate, entries[1].CollectionDate)
	}
	// Bare ordinal resolves against the March context, not against today.
	if entries[2].CollectionDate != "2025-03-16" {
		t.Errorf("third date = %q, want 2025-03-16", entries[2].CollectionDate)
	}
}

func TestParse_NoHeaderDefaultsToToday(t *testing.T) {
	e := parseOne(t, "• something")
	if e.CollectionDate != "2025-06-10" {
		t.Errorf("collection date = %q, want today's 2025-06-10", e.CollectionDate)
	}
}

func TestParse_InvalidDateHeaderIsNotAHeader(t *testing.T) {
	// Feb 30 does not exist, so the line is classified as a plain entry.
	entries := testParser().Parse("2/30/25")
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].CollectionDate != "2025-06-10" {
		t.Errorf("date = %q, want today", entries[0].CollectionDate)
	}
}

func TestParse_BulletTaxonomy(t *testing.T) {
	cases := []struct {
		line    string
		typ     models.EntryType
		status  models.EntryStatus
		content string
	}{
		{"• Buy milk", models.TypeTask, models.StatusIncomplete, "Buy milk"},
		{"x Finish report", models.TypeTask, models.StatusComplete, "Finish report"},
		{"X. Submit taxes", models.TypeTask, models.StatusComplete, "Submit taxes"},
		{"✓ Water plants", models.TypeTask, models.StatusComplete, "Water plants"},
		{"> Plan trip", models.TypeTask, models.StatusMigrated, "Plan trip"},
		{"→ Renew passport", models.TypeTask, models.StatusMigrated, "Renew passport"},
		{"< Dentist follow-up", models.TypeTask, models.StatusScheduled, "Dentist follow-up"},
		{"~ Cancel gym", models.TypeTask, models.StatusCancelled, "Cancel gym"},
		{"○ Standup", models.TypeEvent, models.StatusIncomplete, "Standup"},
		{"o Birthday party", models.TypeEvent, models.StatusIncomplete, "Birthday party"},
		{"- Interesting fact", models.TypeNote, models.StatusIncomplete, "Interesting fact"},
		{"– Em-dash note", models.TypeNote, models.StatusIncomplete, "Em-dash note"},
		{"! Great app idea", models.TypeInspiration, models.StatusIncomplete, "Great app idea"},
	}
	for _, tc := range cases {
		e := parseOne(t, tc.line)
		if e.Type != tc.typ {
			t.Errorf("%q: type = %s, want %s", tc.line, e.Type, tc.typ)
		}
		if e.Status != tc.status {
			t.Errorf("%q: status = %s, want %s", tc.line, e.Status, tc.status)
		}
		if e.Content != tc.content {
			t.Errorf("%q: content = %q, want %q", tc.line, e.Content, tc.content)
		}
	}
}

func TestParse_PrioritySignifier(t *testing.T) {
	e := parseOne(t, "* • Urgent task")
	if e.Priority != models.PriorityHigh {
		t.Errorf("priority = %s, want high", e.Priority)
	}
	if e.Type != models.TypeTask {
		t.Errorf("type = %s, want task", e.Type)
	}

	e = parseOne(t, "* o Board meeting")
	if e.Priority != models.PriorityHigh || e.Type != models.TypeEvent {
		t.Errorf("signified event: priority=%s type=%s", e.Priority, e.Type)
	}
}

func TestParse_PriorityPunctuation(t *testing.T) {
	cases := []struct {
		line string
		want models.Priority
	}{
		{"• Pay rent!!", models.PriorityHigh},
		{"• Pay rent **", models.PriorityHigh},
		{"• Pay rent *", models.PriorityHigh},
		{"• Pay rent!", models.PriorityMedium},
		{"• Pay rent", models.PriorityNone},
	}
	for _, tc := range cases {
		e := parseOne(t, tc.line)
		if e.Priority != tc.want {
			t.Errorf("%q: priority = %s, want %s", tc.line, e.Priority, tc.want)
		}
		if strings.ContainsAny(e.Content, "!*") {
			t.Errorf("%q: content %q still carries priority markers", tc.line, e.Content)
		}
	}
}

func TestParse_TagsAndContexts(t *testing.T) {
	e := parseOne(t, "• Buy milk @store #errands #Errands @Store")
	if len(e.Tags) != 1 || e.Tags[0] != "errands" {
		t.Errorf("tags = %v, want [errands]", e.Tags)
	}
	if len(e.Contexts) != 1 || e.Contexts[0] != "store" {
		t.Errorf("contexts = %v, want [store]", e.Contexts)
	}
	if strings.Contains(e.Content, "#") || strings.Contains(e.Content, "@") {
		t.Errorf("content %q not cleaned", e.Content)
	}
	if e.Content != "Buy milk" {
		t.Errorf("content = %q, want %q", e.Content, "Buy milk")
	}
}

func TestParse_ImplicitWorkContext(t *testing.T) {
	e := parseOne(t, "• Prep slides for the office review")
	found := false
	for _, c := range e.Contexts {
		if c == "work" {
			found = true
		}
	}
	if !found {
		t.Errorf("contexts = %v, want to include work", e.Contexts)
	}
}

func TestParse_TimeTokenBecomesDueDate(t *testing.T) {
	e := parseOne(t, "Team meeting @ 2:00 PM")
	if e.Type != models.TypeEvent {
		t.Fatalf("type = %s, want event", e.Type)
	}
	if e.DueDate == nil {
		t.Fatal("due date not set")
	}
	if e.DueDate.Hour() != 14 || e.DueDate.Minute() != 0 {
		t.Errorf("due = %02d:%02d, want 14:00", e.DueDate.Hour(), e.DueDate.Minute())
	}
	if e.Content != "Team meeting" {
		t.Errorf("content = %q, want %q", e.Content, "Team meeting")
	}
}

func TestParse_TwelveHourEdges(t *testing.T) {
	cases := []struct {
		line string
		hour int
	}{
		{"• Lunch at 12:00pm", 12},
		{"• Fireworks at 12:00am", 0},
		{"• Call at 12:30", 12},
		{"• Standup at 9:15am", 9},
	}
	for _, tc := range cases {
		e := parseOne(t, tc.line)
		if e.DueDate == nil {
			t.Fatalf("%q: no due date", tc.line)
		}
		if e.DueDate.Hour() != tc.hour {
			t.Errorf("%q: hour = %d, want %d", tc.line, e.DueDate.Hour(), tc.hour)
		}
	}
}

func TestParse_DueDateUsesDateContext(t *testing.T) {
	e := parseOne(t, "March 15th\n• Dentist at 3:45pm")
	if e.DueDate == nil {
		t.Fatal("no due date")
	}
	y, m, d := e.DueDate.Date()
	if y != 2025 || m != time.March || d != 15 {
		t.Errorf("due date = %v, want 2025-03-15", e.DueDate)
	}
	if e.DueDate.Hour() != 15 || e.DueDate.Minute() != 45 {
		t.Errorf("due time = %02d:%02d, want 15:45", e.DueDate.Hour(), e.DueDate.Minute())
	}
}

func TestParse_Heuristics(t *testing.T) {
	cases := []struct {
		line   string
		typ    models.EntryType
		status models.EntryStatus
	}{
		{"pick up dry cleaning", models.TypeTask, models.StatusIncomplete},
		{"buy birthday card", models.TypeTask, models.StatusIncomplete},
		{"50% for quarterly report", models.TypeTask, models.StatusIncomplete},
		{"100% for quarterly report", models.TypeTask, models.StatusComplete},
		{"finished reading Dune", models.TypeNote, models.StatusIncomplete},
		{"watching the new season", models.TypeNote, models.StatusIncomplete},
		{"Schedule annual checkup", models.TypeTask, models.StatusIncomplete},
		{"misc scribble words", models.TypeNote, models.StatusIncomplete},
	}
	for _, tc := range cases {
		e := parseOne(t, tc.line)
		if e.Type != tc.typ {
			t.Errorf("%q: type = %s, want %s", tc.line, e.Type, tc.typ)
		}
		if e.Status != tc.status {
			t.Errorf("%q: status = %s, want %s", tc.line, e.Status, tc.status)
		}
	}
}

func TestParse_ShortUnclassifiableLineDropped(t *testing.T) {
	if got := testParser().Parse("abc"); len(got) != 0 {
		t.Errorf("short lowercase fragment produced %d entries, want 0", len(got))
	}
}

func TestParse_CompletionCueOnPlainBullet(t *testing.T) {
	e := parseOne(t, "• Report draft done")
	if e.Status != models.StatusComplete {
		t.Errorf("status = %s, want complete", e.Status)
	}
	// Cues never downgrade an explicit glyph status.
	e = parseOne(t, "> migrate the finished report")
	if e.Status != models.StatusMigrated {
		t.Errorf("status = %s, want migrated", e.Status)
	}
}

func TestParse_EntryCountBoundedByLines(t *testing.T) {
	text := "March 15th\n• a real task\nok\nMeeting notes from today\n\n\n16th"
	nonBlank := 0
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			nonBlank++
		}
	}
	entries := testParser().Parse(text)
	if len(entries) > nonBlank {
		t.Errorf("%d entries from %d non-blank lines", len(entries), nonBlank)
	}
}

func TestParse_Idempotent(t *testing.T) {
	text := "March 15th\n• Buy milk @store #errands\nTeam meeting @ 2:00 PM\nx Finish report"
	a := testParser().Parse(text)
	b := testParser().Parse(text)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		x, y := a[i], b[i]
		// IDs are freshly generated each call.
		if x.ID == y.ID {
			t.Errorf("entry %d: ids should differ", i)
		}
		x.ID, y.ID = "", ""
		x.CreatedAt, y.CreatedAt = time.Time{}, time.Time{}
		if (x.DueDate == nil) != (y.DueDate == nil) {
			t.Fatalf("entry %d: due-date presence differs", i)
		}
		if x.DueDate != nil && !x.DueDate.Equal(*y.DueDate) {
			t.Errorf("entry %d: due dates differ: %v vs %v", i, x.DueDate, y.DueDate)
		}
		x.DueDate, y.DueDate = nil, nil
		if fmt.Sprintf("%+v", x) != fmt.Sprintf("%+v", y) {
			t.Errorf("entry %d differs:\n%+v\n%+v", i, x, y)
		}
	}
}

func TestParse_OrderingPreserved(t *testing.T) {
	text := "• first\n• second\n• third"
	entries := testParser().Parse(text)
	if len(entries) != 3 {
		t.Fatalf("got %d entries", len(entries))
	}
	for i, want := range []string{"first", "second", "third"} {
		if entries[i].Content != want {
			t.Errorf("entry %d = %q, want %q", i, entries[i].Content, want)
		}
	}
}

func TestParse_LargeInputCompletes(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 1200; i++ {
		fmt.Fprintf(&sb, "• task number %d #batch\n", i)
	}
	start := time.Now()
	entries := testParser().Parse(sb.String())
	if len(entries) != 1200 {
		t.Fatalf("got %d entries, want 1200", len(entries))
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("parse took %v", elapsed)
	}
}
