package dataset

import (
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
)

// formulaPrefixes start cells that spreadsheet programs evaluate as formulas.
const formulaPrefixes = "=+-@"

// Sanitize returns a copy of ds where text cells starting with '=', '+', '-' or '@'
// are prefixed with a tab so they are not evaluated when exported back to a spreadsheet.
// Numeric parsing trims the tab again, so negative numbers are unaffected.
func Sanitize(ds *chart.Dataset) *chart.Dataset {
	if ds == nil {
		return nil
	}
	out := ds.Clone()
	for _, r := range out.Rows {
		for k, v := range r {
			s, ok := v.(string)
			if ok && s != "" && strings.ContainsRune(formulaPrefixes, rune(s[0])) {
				r[k] = "\t" + s
			}
		}
	}
	return out
}
