package bujo

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ordinalDayRe = regexp.MustCompile(`(?i)^(\d{1,2})(?:st|nd|rd|th)$`)
	monthDayRe   = regexp.MustCompile(`(?i)^([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?$`)
	numericRe    = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2}|\d{4})$`)
	timeTokenRe  = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*([aApP][mM])?`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// parseDateHeader recognizes a standalone date-header line in one of three
// forms, in precedence order: a bare ordinal day ("15th"), month name plus
// day ("March 15th"), or numeric M/D/Y. ref supplies the year and month used
// to resolve the partial forms. Two-digit years are read as 2000+YY.
func parseDateHeader(line string, ref time.Time) (time.Time, bool) {
	if m := ordinalDayRe.FindStringSubmatch(line); m != nil {
		day, _ := strconv.Atoi(m[1])
		return resolveDate(ref.Year(), ref.Month(), day)
	}
	if m := monthDayRe.FindStringSubmatch(line); m != nil {
		month, ok := monthFromName(m[1])
		if !ok {
			return time.Time{}, false
		}
		day, _ := strconv.Atoi(m[2])
		year := ref.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		return resolveDate(year, month, day)
	}
	if m := numericRe.FindStringSubmatch(line); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		return resolveDate(year, time.Month(month), day)
	}
	return time.Time{}, false
}

// resolveDate builds a calendar date and rejects impossible combinations.
func resolveDate(year int, month time.Month, day int) (time.Time, bool) {
	if day < 1 || day > 31 || month < time.January || month > time.December {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	// time.Date normalizes overflow (Feb 30 becomes Mar 2); reject that.
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

func monthFromName(name string) (time.Month, bool) {
	lower := strings.ToLower(name)
	if len(lower) < 3 {
		return 0, false
	}
	m, ok := monthsByPrefix[lower[:3]]
	if !ok {
		return 0, false
	}
	// Accept abbreviations ("mar", "sept") but reject words that merely
	// start with a month prefix ("marathon").
	full := strings.ToLower(m.String())
	if !strings.HasPrefix(full, lower) {
		return 0, false
	}
	return m, true
}

// parseTimeToken finds the first HH:MM[am/pm] token in line and converts it
// to 24-hour values. 12am maps to 0 and 12pm stays 12.
func parseTimeToken(line string) (hour, minute int, ok bool) {
	m := timeTokenRe.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour, minute, true
}
