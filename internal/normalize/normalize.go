// Package normalize canonicalizes loosely typed spreadsheet values into the
// enums and dates the data model stores. Nothing here returns an error:
// unrecognized input is reported through the ok flag and left for the
// batch validator to reject.
package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ukydev/fieldops/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// excelEpochOffset is the serial of 1970-01-01 in Excel's 1900 date system.
const excelEpochOffset = 25569

var dayMonthYear = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Fold lower-cases s and strips diacritics, so "Instalação" becomes "instalacao".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ServiceType maps free text to a canonical service type. When nothing
// matches, the original input is returned with ok=false.
func ServiceType(input string) (models.ServiceType, bool) {
	return match(input, models.ServiceTypeVocabulary)
}

// Status maps free text to a canonical status. When nothing matches, the
// original input is returned with ok=false.
func Status(input string) (models.Status, bool) {
	return match(input, models.StatusVocabulary)
}

func match[T ~string](input string, vocabulary []models.VocabularyEntry[T]) (T, bool) {
	folded := Fold(input)
	if folded == "" {
		return T(input), false
	}
	for _, e := range vocabulary {
		if strings.Contains(folded, e.Fragment) {
			return e.Value, true
		}
	}
	return T(input), false
}

// ParseDate accepts a time.Time, a spreadsheet serial number (Excel 1900
// system), an ISO date string or a DD/MM/YYYY string. Anything else yields
// ok=false, which callers treat as "no date".
func ParseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return d, !d.IsZero()
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		return *d, !d.IsZero()
	case float64:
		return FromSerial(d)
	case float32:
		return FromSerial(float64(d))
	case int:
		return FromSerial(float64(d))
	case int32:
		return FromSerial(float64(d))
	case int64:
		return FromSerial(float64(d))
	case json.Number:
		f, err := d.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return FromSerial(f)
	case string:
		return parseDateString(d)
	default:
		return time.Time{}, false
	}
}

// FromSerial converts an Excel serial day number to a UTC time using
// (serial - 25569) * 86400 * 1000 milliseconds since the Unix epoch.
func FromSerial(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial <= 0 {
		return time.Time{}, false
	}
	ms := (serial - excelEpochOffset) * 86400 * 1000
	return time.UnixMilli(int64(math.Round(ms))).UTC(), true
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if m := dayMonthYear.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes 31/02 into March; reject instead
		if t.Day() != day || int(t.Month()) != month {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FromSerial(f)
	}
	return time.Time{}, false
}

// FormatDate renders t as DD/MM/YYYY, the layout spreadsheets exchange.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
