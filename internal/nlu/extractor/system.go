package extractor

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/seu-repo/botcore/internal/domain"
)

const isoDate = "2006-01-02"

var (
	reISODate     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	reSlashDate   = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
	reRelativeDay = regexp.MustCompile(`(?i)\b(today|tomorrow|yesterday)\b`)
	reNumber      = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	reDuration    = regexp.MustCompile(`(?i)\b(\d+)\s*(seconds?|secs?|minutes?|mins?|hours?|hrs?|days?|weeks?)\b`)
	reEmail       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	reURL         = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"]+`)
	rePhone       = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
)

// systemPatterns lists the recognizers a definition may name.
var systemPatterns = map[domain.SystemRecognizer][]*regexp.Regexp{
	domain.SystemDate:     {reISODate, reSlashDate, reRelativeDay},
	domain.SystemNumber:   {reNumber},
	domain.SystemDuration: {reDuration},
	domain.SystemEmail:    {reEmail},
	domain.SystemURL:      {reURL},
	domain.SystemPhone:    {rePhone},
}

func (e *Extractor) scanSystem(def compiledDef, text string) []candidate {
	var out []candidate
	emit := func(start, end int, value string) {
		out = append(out, candidate{name: def.name, match: domain.EntityMatch{
			Value:  value,
			Raw:    text[start:end],
			Span:   domain.Span{Start: start, End: end},
			Source: domain.EntityKindSystem,
		}})
	}

	switch def.system {
	case domain.SystemDate:
		for _, loc := range reISODate.FindAllStringIndex(text, -1) {
			if d, err := time.Parse(isoDate, text[loc[0]:loc[1]]); err == nil {
				emit(loc[0], loc[1], d.Format(isoDate))
			}
		}
		for _, loc := range reSlashDate.FindAllStringIndex(text, -1) {
			if d, err := time.Parse("02/01/2006", text[loc[0]:loc[1]]); err == nil {
				emit(loc[0], loc[1], d.Format(isoDate))
			}
		}
		today := e.now()
		for _, loc := range reRelativeDay.FindAllStringIndex(text, -1) {
			offset := 0
			switch strings.ToLower(text[loc[0]:loc[1]]) {
			case "tomorrow":
				offset = 1
			case "yesterday":
				offset = -1
			}
			emit(loc[0], loc[1], today.AddDate(0, 0, offset).Format(isoDate))
		}

	case domain.SystemNumber:
		for _, loc := range reNumber.FindAllStringIndex(text, -1) {
			emit(loc[0], loc[1], text[loc[0]:loc[1]])
		}

	case domain.SystemDuration:
		for _, m := range reDuration.FindAllStringSubmatchIndex(text, -1) {
			n, err := strconv.Atoi(text[m[2]:m[3]])
			if err != nil {
				continue
			}
			d, ok := durationValue(n, strings.ToLower(text[m[4]:m[5]]))
			if !ok {
				continue
			}
			emit(m[0], m[1], d.String())
		}

	case domain.SystemEmail:
		for _, loc := range reEmail.FindAllStringIndex(text, -1) {
			emit(loc[0], loc[1], strings.ToLower(text[loc[0]:loc[1]]))
		}

	case domain.SystemURL:
		for _, loc := range reURL.FindAllStringIndex(text, -1) {
			end := loc[0] + len(strings.TrimRight(text[loc[0]:loc[1]], ".,;:!?)"))
			emit(loc[0], end, text[loc[0]:end])
		}

	case domain.SystemPhone:
		for _, loc := range rePhone.FindAllStringIndex(text, -1) {
			raw := text[loc[0]:loc[1]]
			digits := strings.Map(func(r rune) rune {
				if r >= '0' && r <= '9' {
					return r
				}
				return -1
			}, raw)
			if len(digits) < 8 || len(digits) > 15 {
				continue
			}
			if strings.HasPrefix(raw, "+") {
				digits = "+" + digits
			}
			emit(loc[0], loc[1], digits)
		}
	}
	return out
}

// durationValue converts a counted unit into a time.Duration; days and weeks
// are rendered in hours. Counts that do not fit in a Duration report false.
func durationValue(n int, unit string) (time.Duration, bool) {
	var per time.Duration
	switch {
	case strings.HasPrefix(unit, "sec"):
		per = time.Second
	case strings.HasPrefix(unit, "min"):
		per = time.Minute
	case strings.HasPrefix(unit, "h"):
		per = time.Hour
	case strings.HasPrefix(unit, "day"):
		per = 24 * time.Hour
	default:
		per = 7 * 24 * time.Hour
	}
	if n < 0 || int64(n) > math.MaxInt64/int64(per) {
		return 0, false
	}
	return time.Duration(n) * per, true
}
