// forumindex/utils/format.go
package utils

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Formatter renders numbers and dates for display.
type Formatter struct {
	ThousandsSep string
	// DateLayout is a Go reference-time layout.
	DateLayout string
	Location   *time.Location
}

// NewFormatter falls back to "," and UTC for empty inputs.
func NewFormatter(thousandsSep, dateLayout string, loc *time.Location) Formatter {
	if loc == nil {
		loc = time.UTC
	}
	if dateLayout == "" {
		dateLayout = "Jan 2, 2006 3:04 PM"
	}
	return Formatter{ThousandsSep: thousandsSep, DateLayout: dateLayout, Location: loc}
}

// FormatNumber groups digits by thousands with the configured separator.
func (f Formatter) FormatNumber(n int64) string {
	s := humanize.Comma(n)
	if f.ThousandsSep == "," {
		return s
	}
	return strings.ReplaceAll(s, ",", f.ThousandsSep)
}

// FormatDateTime renders t in the configured zone.
func (f Formatter) FormatDateTime(t time.Time) string {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(f.DateLayout)
}
