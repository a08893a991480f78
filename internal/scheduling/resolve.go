package scheduling

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"salesbot_backend/platform/textnorm"
)

var months = map[string]time.Month{
	"enero": time.January, "january": time.January, "jan": time.January, "ene": time.January,
	"febrero": time.February, "february": time.February, "feb": time.February,
	"marzo": time.March, "march": time.March,
	"abril": time.April, "april": time.April, "abr": time.April, "apr": time.April,
	"mayo": time.May, "may": time.May,
	"junio": time.June, "june": time.June, "jun": time.June,
	"julio": time.July, "july": time.July, "jul": time.July,
	"agosto": time.August, "august": time.August, "ago": time.August, "aug": time.August,
	"septiembre": time.September, "setiembre": time.September, "september": time.September, "sep": time.September,
	"octubre": time.October, "october": time.October, "oct": time.October,
	"noviembre": time.November, "november": time.November, "nov": time.November,
	"diciembre": time.December, "december": time.December, "dic": time.December, "dec": time.December,
}

var (
	numericDateRe = regexp.MustCompile(`(?:^|[^\d:])(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?(?:$|[^\d:])`)
	spanishDateRe = regexp.MustCompile(`(?:^|\s)(\d{1,2})\s+de\s+([a-z]+)(?:\s+(?:de|del)\s+(\d{4}))?`)
	englishDateRe = regexp.MustCompile(`(?:^|\s)([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?(?:$|[^\d])`)
	weekdayRe     = regexp.MustCompile(`[a-z]+`)

	clockRe    = regexp.MustCompile(`(?:^|[^\d])(\d{1,2}):(\d{2})(?:$|[^\d])`)
	meridiemRe = regexp.MustCompile(`(?:^|[^\d])(\d{1,2})\s*(a\.?\s?m\.?|p\.?\s?m\.?)(?:$|[^a-z])`)
	atHourRe   = regexp.MustCompile(`(?:^|\s)(?:a las|a la|at|las|tipo)\s+(\d{1,2})(?:$|[^\d/:-])`)
	dayPartRe  = regexp.MustCompile(`(?:^|[^\d/:-])(\d{1,2})\s+(?:de|en|por) la (?:manana|tarde|noche)`)
	bareHourRe = regexp.MustCompile(`^\s*(\d{1,2})(?:\s+y\s+(?:media|cuarto))?\s*$`)
	pmRe       = regexp.MustCompile(`(?:^|[\d\s])p\.?\s?m\.?(?:$|[^a-z])|de la tarde|de la noche|en la tarde|en la noche|por la tarde|por la noche|evening|afternoon|tonight`)
	amRe       = regexp.MustCompile(`(?:^|[\d\s])a\.?\s?m\.?(?:$|[^a-z])|de la manana|en la manana|por la manana|morning`)
	halfRe     = regexp.MustCompile(`y media|and a half|thirty`)
	quarterRe  = regexp.MustCompile(`y cuarto|quarter past`)
)

// ResolveDate turns free text into the nearest matching calendar day on or
// after today. now must already be in the business location. Dates that
// resolve to the past are rejected.
func ResolveDate(text string, now time.Time) (Date, bool) {
	norm := textnorm.Normalize(text)
	if norm == "" {
		return Date{}, false
	}
	today := DateOf(now)

	switch {
	case strings.Contains(norm, "pasado manana") || strings.Contains(norm, "day after tomorrow"):
		return DateOf(now.AddDate(0, 0, 2)), true
	}

	if d, ok := resolveAbsolute(norm, today); ok {
		return d, !d.Before(today)
	}

	if wd, ok := findWeekday(norm); ok {
		delta := (int(wd) - int(now.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return DateOf(now.AddDate(0, 0, delta)), true
	}

	switch {
	case mentionsTomorrow(norm):
		return DateOf(now.AddDate(0, 0, 1)), true
	case textnorm.ContainsBounded(norm, "hoy") || textnorm.ContainsBounded(norm, "today"):
		return today, true
	}
	return Date{}, false
}

// mentionsTomorrow distinguishes "mañana" (tomorrow) from "la mañana" (the
// morning).
func mentionsTomorrow(norm string) bool {
	if textnorm.ContainsBounded(norm, "tomorrow") {
		return true
	}
	words := strings.FieldsFunc(norm, func(r rune) bool { return r < 'a' || r > 'z' })
	for i, w := range words {
		if w != "manana" {
			continue
		}
		if i > 0 && (words[i-1] == "la" || words[i-1] == "las") {
			continue
		}
		return true
	}
	return false
}

func findWeekday(norm string) (time.Weekday, bool) {
	for _, w := range weekdayRe.FindAllString(norm, -1) {
		if len(w) <= 3 {
			// abbreviations collide with ordinary words ("mar", "sun")
			continue
		}
		if wd, ok := weekdayNames[w]; ok {
			return wd, true
		}
	}
	return 0, false
}

func resolveAbsolute(norm string, today Date) (Date, bool) {
	if m := numericDateRe.FindStringSubmatch(norm); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return buildDate(day, time.Month(month), m[3], today)
	}
	if m := spanishDateRe.FindStringSubmatch(norm); m != nil {
		if month, ok := months[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			return buildDate(day, month, m[3], today)
		}
	}
	if m := englishDateRe.FindStringSubmatch(norm); m != nil {
		if month, ok := months[m[1]]; ok {
			day, _ := strconv.Atoi(m[2])
			return buildDate(day, month, m[3], today)
		}
	}
	return Date{}, false
}

// buildDate validates the day exists. Without an explicit year the next
// occurrence is used.
func buildDate(day int, month time.Month, yearText string, today Date) (Date, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return Date{}, false
	}
	year := today.Year
	explicitYear := yearText != ""
	if explicitYear {
		y, err := strconv.Atoi(yearText)
		if err != nil {
			return Date{}, false
		}
		if y < 100 {
			y += 2000
		}
		year = y
	}

	d, ok := exists(year, month, day)
	if !ok {
		return Date{}, false
	}
	if !explicitYear && d.Before(today) {
		d, ok = exists(year+1, month, day)
		if !ok {
			return Date{}, false
		}
	}
	return d, true
}

func exists(year int, month time.Month, day int) (Date, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// ResolveTime extracts a clock time. Hours 1 to 6 with no am/pm marker are
// read as afternoon.
func ResolveTime(text string) (Clock, bool) {
	norm := textnorm.Normalize(text)
	if norm == "" {
		return Clock{}, false
	}

	hour, minute := -1, 0
	hasMeridiem := false
	switch {
	case clockRe.MatchString(norm):
		m := clockRe.FindStringSubmatch(norm)
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
	case meridiemRe.MatchString(norm):
		m := meridiemRe.FindStringSubmatch(norm)
		hour, _ = strconv.Atoi(m[1])
		hasMeridiem = true
	case dayPartRe.MatchString(norm):
		m := dayPartRe.FindStringSubmatch(norm)
		hour, _ = strconv.Atoi(m[1])
	case atHourRe.MatchString(norm):
		m := atHourRe.FindStringSubmatch(norm)
		hour, _ = strconv.Atoi(m[1])
	case bareHourRe.MatchString(norm):
		m := bareHourRe.FindStringSubmatch(norm)
		hour, _ = strconv.Atoi(m[1])
	default:
		return Clock{}, false
	}

	if minute == 0 {
		switch {
		case halfRe.MatchString(norm):
			minute = 30
		case quarterRe.MatchString(norm):
			minute = 15
		}
	}

	pm := pmRe.MatchString(norm)
	am := !pm && amRe.MatchString(norm)
	hasMeridiem = hasMeridiem || pm || am

	switch {
	case pm && hour >= 1 && hour < 12:
		hour += 12
	case am && hour == 12:
		hour = 0
	case !hasMeridiem && hour >= 1 && hour <= 6:
		hour += 12
	}

	c := Clock{Hour: hour, Minute: minute}
	if !c.valid() {
		return Clock{}, false
	}
	return c, true
}
