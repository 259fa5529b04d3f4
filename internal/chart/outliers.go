package chart

import (
	"math"
	"sort"
)

// IQRMultiplier scales the interquartile range when computing outlier fences.
const IQRMultiplier = 1.5

// OutlierReport describes one application of the IQR filter.
type OutlierReport struct {
	Column  string
	Q1, Q3  float64
	Lower   float64
	Upper   float64
	Kept    int
	Removed int
	// Skipped is set when the column is not numeric and the filter did nothing.
	Skipped bool
	// Degenerate is set for empty or constant columns; the result is still valid.
	Degenerate bool
}

// FilterOutliers returns a new dataset holding only the rows whose value in col lies within
// [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. Survivor order is preserved. Quartiles use linear
// interpolation between closest ranks. Text columns are returned unchanged (as a copy).
func FilterOutliers(ds *Dataset, col string) (*Dataset, OutlierReport, error) {
	rep := OutlierReport{Column: col}
	if ds == nil {
		return nil, rep, newError(KindSchema, col, "dataset is missing")
	}
	if !ds.Has(col) {
		return nil, rep, newError(KindSchema, col, "column not found")
	}
	if !ds.Type(col).Numeric() {
		rep.Skipped = true
		rep.Kept = ds.Len()
		return ds.Clone(), rep, nil
	}
	vals := make([]float64, 0, ds.Len())
	for _, r := range ds.Rows {
		x, ok := toFloat(r[col])
		if !ok {
			return nil, rep, newError(KindParsingAnomaly, col, "non-numeric cell %v in numeric column", r[col])
		}
		vals = append(vals, x)
	}
	if len(vals) == 0 {
		rep.Degenerate = true
		return ds.Clone(), rep, nil
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	rep.Q1 = quantile(sorted, 0.25)
	rep.Q3 = quantile(sorted, 0.75)
	iqr := rep.Q3 - rep.Q1
	rep.Lower = rep.Q1 - IQRMultiplier*iqr
	rep.Upper = rep.Q3 + IQRMultiplier*iqr
	if iqr == 0 {
		rep.Degenerate = true
	}

	kept := make([]Row, 0, len(vals))
	for i, r := range ds.Rows {
		if x := vals[i]; x >= rep.Lower && x <= rep.Upper {
			kept = append(kept, r)
		}
	}
	rep.Kept = len(kept)
	rep.Removed = len(vals) - len(kept)
	return ds.withRows(cloneRows(kept)), rep, nil
}

// quantile expects sorted input and interpolates linearly between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
