package providers

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// defaultDateLayouts covers RFC-822 feed dates, ISO dates and the Brazilian
// day-first formats found on article pages.
var defaultDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04 -0700",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 às 15:04",
	"02/01/2006 15:04",
	"02/01/2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
}

// CNN Brasil style: "Atualizado 04/01/2024 às 10:00".
var brazilianDateTimeRe = regexp.MustCompile(`\d{2}/\d{2}/\d{4} às \d{1,2}:\d{2}`)

var ptMonths = map[string]string{
	"janeiro": "Jan", "jan": "Jan",
	"fevereiro": "Feb", "fev": "Feb",
	"março": "Mar", "marco": "Mar", "mar": "Mar",
	"abril": "Apr", "abr": "Apr",
	"maio": "May", "mai": "May",
	"junho": "Jun", "jun": "Jun",
	"julho": "Jul", "jul": "Jul",
	"agosto": "Aug", "ago": "Aug",
	"setembro": "Sep", "set": "Sep",
	"outubro": "Oct", "out": "Oct",
	"novembro": "Nov", "nov": "Nov",
	"dezembro": "Dec", "dez": "Dec",
}

var ptWeekdays = map[string]struct{}{
	"dom": {}, "domingo": {},
	"seg": {}, "segunda": {}, "segunda-feira": {},
	"ter": {}, "terça": {}, "terça-feira": {},
	"qua": {}, "quarta": {}, "quarta-feira": {},
	"qui": {}, "quinta": {}, "quinta-feira": {},
	"sex": {}, "sexta": {}, "sexta-feira": {},
	"sáb": {}, "sab": {}, "sábado": {},
}

// zoneOffsets maps the zone abbreviations seen in feeds to fixed offsets.
// time.Parse gives any abbreviation unknown to the parse location a zero
// offset, so these are rewritten before parsing.
var zoneOffsets = map[string]string{
	"UTC": "+0000", "GMT": "+0000", "UT": "+0000",
	"BRT": "-0300", "BRST": "-0200",
	"AMT": "-0400", "AMST": "-0300",
	"ACT": "-0500", "FNT": "-0200",
	"EST": "-0500", "EDT": "-0400",
	"PST": "-0800", "PDT": "-0700",
	"WET": "+0000", "WEST": "+0100",
	"CET": "+0100", "CEST": "+0200",
}

// dateParser parses source date strings into UTC.
type dateParser struct {
	loc     *time.Location
	layouts []string
}

func newDateParser(loc *time.Location, extra []string) dateParser {
	layouts := make([]string, 0, len(extra)+len(defaultDateLayouts))
	for _, l := range extra {
		if l = strings.TrimSpace(l); l != "" {
			layouts = append(layouts, l)
		}
	}
	layouts = append(layouts, defaultDateLayouts...)
	if loc == nil {
		loc = time.UTC
	}
	return dateParser{loc: loc, layouts: layouts}
}

// Parse tries every layout, first on the raw value and then on its
// Portuguese-normalized form. Values without an offset are read in the
// provider timezone.
func (p dateParser) Parse(raw string) (time.Time, error) {
	raw = strings.Join(strings.Fields(raw), " ")
	if raw == "" {
		return time.Time{}, fmt.Errorf("date: %w", ErrFieldMissing)
	}

	raw = numericZone(raw)
	t, ok, zone := p.try(raw)
	if ok {
		return t, nil
	}
	if norm := normalizePortuguese(raw); norm != raw {
		if t, ok, _ := p.try(norm); ok {
			return t, nil
		}
	}
	if zone != "" {
		return time.Time{}, fmt.Errorf("%q: zone %s: %w", raw, zone, ErrUnknownZone)
	}
	return time.Time{}, fmt.Errorf("%q: %w", raw, ErrDateFormat)
}

// try returns the first layout match. unknownZone names an abbreviation that
// matched a layout but has no known offset.
func (p dateParser) try(value string) (t time.Time, ok bool, unknownZone string) {
	for _, layout := range p.layouts {
		parsed, err := time.ParseInLocation(layout, value, p.loc)
		if err != nil {
			continue
		}
		if strings.Contains(layout, "MST") && !p.knownZone(parsed) {
			unknownZone, _ = parsed.Zone()
			continue
		}
		return parsed.UTC(), true, ""
	}
	return time.Time{}, false, unknownZone
}

// knownZone rejects the zero-offset placeholder zone time.Parse invents for
// an abbreviation the parse location does not define.
func (p dateParser) knownZone(t time.Time) bool {
	if loc := t.Location(); loc == p.loc || loc == time.UTC {
		return true
	}
	name, _ := t.Zone()
	return strings.HasPrefix(name, "GMT")
}

// numericZone replaces a trailing zone abbreviation listed in zoneOffsets
// with its numeric offset.
func numericZone(raw string) string {
	i := strings.LastIndexByte(raw, ' ')
	if i < 0 {
		return raw
	}
	if off, ok := zoneOffsets[raw[i+1:]]; ok {
		return raw[:i+1] + off
	}
	return raw
}

// normalizePortuguese rewrites "qui, 4 de janeiro de 2024, 10h00" into
// "4 Jan 2024 10:00" so the English layouts can read it.
func normalizePortuguese(raw string) string {
	fields := strings.Fields(strings.ToLower(raw))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ",")
		key := strings.TrimSuffix(f, ".")
		if _, ok := ptWeekdays[key]; ok {
			continue
		}
		if f == "de" || f == "às" || f == "as" || f == "-" || f == "" {
			continue
		}
		if m, ok := ptMonths[key]; ok {
			out = append(out, m)
			continue
		}
		if h, m, ok := strings.Cut(f, "h"); ok && isDigits(h) && (m == "" || isDigits(m)) {
			if m == "" {
				m = "00"
			}
			f = h + ":" + m
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// extractDate returns the first match of re in text, or text itself when re is nil.
func extractDate(text string, re *regexp.Regexp) (string, error) {
	text = strings.TrimSpace(text)
	if re == nil {
		return text, nil
	}
	match := re.FindString(text)
	if match == "" {
		return "", fmt.Errorf("%q: %w", text, ErrDateFormat)
	}
	return match, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
