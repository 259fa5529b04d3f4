package chart

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

var errNotNumeric = errors.New("not numeric")

// NormalizeTypes returns a copy of ds where every column whose cells all parse as numbers
// is coerced to int64 (all values integral) or float64. Columns with any non-numeric cell
// are left as they are. Faults while converting a column are returned as parsing-anomaly
// diagnostics and leave that column unconverted. The input is not modified.
func NormalizeTypes(ds *Dataset) (*Dataset, []*Error) {
	if ds == nil {
		return nil, nil
	}
	out := ds.Clone()
	var diags []*Error
	for _, col := range out.Columns {
		typ, vals, err := convertColumn(out.Rows, col)
		if err != nil {
			var ce *Error
			if errors.As(err, &ce) {
				diags = append(diags, ce)
			}
			continue
		}
		if vals == nil {
			out.types[col] = TypeText
			continue
		}
		for i, r := range out.Rows {
			r[col] = vals[i]
		}
		out.types[col] = typ
	}
	return out, diags
}

// number is a parsed cell. exact is set when i holds the value without rounding.
type number struct {
	f     float64
	i     int64
	exact bool
}

// convertColumn parses every cell of col. A nil slice with nil error means the column stays text.
func convertColumn(rows []Row, col string) (typ ColumnType, vals []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			typ, vals = TypeText, nil
			err = &Error{Kind: KindParsingAnomaly, Column: col, Msg: "column left unconverted", Err: fmt.Errorf("%v", r)}
		}
	}()
	nums := make([]number, len(rows))
	integral := true
	for i, r := range rows {
		n, perr := parseNumber(r[col])
		if perr != nil {
			if errors.Is(perr, errNotNumeric) {
				return TypeText, nil, nil
			}
			return TypeText, nil, &Error{Kind: KindParsingAnomaly, Column: col, Msg: "column left unconverted", Err: perr}
		}
		if integral && !n.exact && !isIntegral(n.f) {
			integral = false
		}
		nums[i] = n
	}
	vals = make([]any, len(nums))
	if integral {
		for i, n := range nums {
			if n.exact {
				vals[i] = n.i
			} else {
				vals[i] = int64(n.f)
			}
		}
		return TypeInteger, vals, nil
	}
	for i, n := range nums {
		vals[i] = n.f
	}
	return TypeFloat, vals, nil
}

// parseNumber keeps integers exact; float64 only represents them up to 2^53.
func parseNumber(v any) (number, error) {
	var (
		x   float64
		err error
	)
	switch t := v.(type) {
	case nil, bool:
		return number{}, errNotNumeric
	case int64:
		return number{f: float64(t), i: t, exact: true}, nil
	case int, int32, int16, int8:
		i := cast.ToInt64(t)
		return number{f: float64(i), i: i, exact: true}, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return number{}, errNotNumeric
		}
		if i, ierr := strconv.ParseInt(s, 10, 64); ierr == nil {
			return number{f: float64(i), i: i, exact: true}, nil
		}
		x, err = cast.ToFloat64E(s)
	default:
		x, err = cast.ToFloat64E(t)
	}
	if err != nil {
		return number{}, errNotNumeric
	}
	if math.IsNaN(x) {
		// missing marker
		return number{}, errNotNumeric
	}
	if math.IsInf(x, 0) {
		return number{}, fmt.Errorf("infinite value %v", v)
	}
	return number{f: x}, nil
}

func isIntegral(x float64) bool {
	return x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64
}

// toFloat reads a normalized numeric cell.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
