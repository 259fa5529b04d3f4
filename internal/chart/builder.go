package chart

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// ValueColumnSelector picks the value column when a bar or line chart is offered more than
// one trailing column. It returns false when none of the candidates is usable.
type ValueColumnSelector func(ds *Dataset, candidates []string) (string, bool)

// FirstNumeric selects the leftmost numeric candidate. Charts carry a single series, so the
// remaining columns are ignored rather than drawn as extra series.
func FirstNumeric(ds *Dataset, candidates []string) (string, bool) {
	for _, c := range candidates {
		if ds.Type(c).Numeric() {
			return c, true
		}
	}
	return "", false
}

// Builder turns a dataset and a column selection into a chart payload.
// A Builder holds no per-request state and is safe for concurrent use.
type Builder struct {
	logger   *zap.Logger
	yTitle   string
	selector ValueColumnSelector
}

// Option configures a Builder.
type Option func(*Builder)

// WithYTitle overrides the y-axis title of cartesian charts.
func WithYTitle(title string) Option {
	return func(b *Builder) {
		if strings.TrimSpace(title) != "" {
			b.yTitle = title
		}
	}
}

// WithValueSelector replaces FirstNumeric.
func WithValueSelector(s ValueColumnSelector) Option {
	return func(b *Builder) {
		if s != nil {
			b.selector = s
		}
	}
}

// NewBuilder returns a Builder. A nil logger disables logging.
func NewBuilder(logger *zap.Logger, opts ...Option) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Builder{logger: logger, yTitle: DefaultYTitle, selector: FirstNumeric}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build normalizes types, removes outliers column by column and formats the payload.
// The first column labels the data; labels keep their normalized type, so float labels are
// grouped as floats rather than truncated. ds is never modified.
func (b *Builder) Build(ds *Dataset, columns []string, chartType ChartType) (*Payload, error) {
	p, _, err := b.build(ds, columns, chartType)
	return p, err
}

// Result is the outcome of Synthesize.
type Result struct {
	Payload   *Payload
	Summary   string
	Inference Inference
	// Diagnostics lists absorbed, non-fatal anomalies.
	Diagnostics []*Error
}

// Synthesize infers chart type and columns from a model response and builds the payload.
func (b *Builder) Synthesize(ds *Dataset, response string) (*Result, error) {
	if ds == nil {
		return nil, newError(KindSchema, "", "dataset is missing")
	}
	in := Infer(response, ds.Columns)
	ct, err := in.ChartType()
	if err != nil {
		return nil, err
	}
	b.logger.Debug("inferred chart selection",
		zap.String("chart_type", string(ct)),
		zap.Strings("columns", in.Columns.Names()))
	p, diags, err := b.build(ds, in.Columns.Names(), ct)
	if err != nil {
		return nil, err
	}
	return &Result{Payload: p, Summary: Shorten(response), Inference: in, Diagnostics: diags}, nil
}

func (b *Builder) build(ds *Dataset, columns []string, chartType ChartType) (*Payload, []*Error, error) {
	if len(columns) == 0 {
		return nil, nil, newError(KindSchema, "", "column selection cannot be empty")
	}
	if ds == nil {
		return nil, nil, newError(KindSchema, "", "dataset is missing")
	}
	if err := ds.Validate(); err != nil {
		return nil, nil, err
	}
	var missing []string
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, nil, newError(KindSchema, c, "column selected more than once")
		}
		seen[c] = true
		if !ds.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, newError(KindSchema, "", "columns not found in dataset: %s", strings.Join(missing, ", "))
	}
	chartType = ParseChartType(string(chartType))
	if chartType.Radial() && len(columns) != 2 {
		return nil, nil, newError(KindChartTypeMismatch, "",
			"%s charts need exactly two columns [labels, values], got %d", chartType, len(columns))
	}

	work, diags := NormalizeTypes(ds)
	for _, d := range diags {
		b.logger.Warn("column left unconverted", zap.String("column", d.Column), zap.Error(d))
	}
	for _, col := range columns {
		var (
			rep OutlierReport
			err error
		)
		work, rep, err = FilterOutliers(work, col)
		if err != nil {
			return nil, diags, err
		}
		if rep.Degenerate {
			d := newError(KindDegenerateData, col, "outlier bounds collapsed (empty or constant column)")
			diags = append(diags, d)
			b.logger.Info("degenerate outlier filter", zap.String("column", col), zap.Int("rows", rep.Kept))
		}
		if rep.Removed > 0 {
			b.logger.Debug("outliers removed",
				zap.String("column", col),
				zap.Int("removed", rep.Removed),
				zap.Int("kept", rep.Kept),
				zap.Float64("lower", rep.Lower),
				zap.Float64("upper", rep.Upper))
		}
	}

	if chartType.Radial() {
		p, err := buildRadial(work, columns[0], columns[1], chartType)
		return p, diags, err
	}
	p, err := b.buildCartesian(work, columns, chartType)
	return p, diags, err
}

func buildRadial(ds *Dataset, labels, values string, ct ChartType) (*Payload, error) {
	if !ds.Type(values).Numeric() {
		return nil, newError(KindNoNumericColumn, values, "no usable numeric column for %s values", ct)
	}
	p := &Payload{ChartType: ct, LabelsKey: labels, ValuesKey: values, Data: make([]Point, 0, ds.Len())}
	for _, r := range ds.Rows {
		p.Data = append(p.Data, Point{Label: r[labels], Value: r[values]})
	}
	return p, nil
}

func (b *Builder) buildCartesian(ds *Dataset, columns []string, ct ChartType) (*Payload, error) {
	labels := columns[0]
	p := &Payload{
		ChartType: ct,
		LabelsKey: labels,
		ValuesKey: DefaultValuesKey,
		Options:   cartesianOptions(labels, b.yTitle),
	}
	valueCols := columns[1:]
	switch {
	case len(valueCols) == 1:
		if !ds.Type(valueCols[0]).Numeric() {
			return nil, newError(KindNoNumericColumn, valueCols[0], "no usable numeric column")
		}
		p.ValuesKey = valueCols[0]
	case len(valueCols) > 1:
		col, ok := b.selector(ds, valueCols)
		if !ok {
			return nil, newError(KindNoNumericColumn, "", "no usable numeric column among %s", strings.Join(valueCols, ", "))
		}
		p.ValuesKey = col
	}

	points := make([]Point, 0, ds.Len())
	for _, r := range ds.Rows {
		pt := Point{Label: r[labels]}
		if len(valueCols) > 0 {
			pt.Value = r[p.ValuesKey]
		}
		points = append(points, pt)
	}
	p.Data = groupMean(points, len(valueCols) > 0)
	return p, nil
}

// groupMean sorts points by label and merges equal labels, averaging their values.
func groupMean(points []Point, withValues bool) []Point {
	sort.SliceStable(points, func(i, j int) bool { return compareCells(points[i].Label, points[j].Label) < 0 })
	out := make([]Point, 0, len(points))
	var vals []float64
	flush := func(label any) {
		pt := Point{Label: label}
		if withValues {
			pt.Value = stat.Mean(vals, nil)
		}
		out = append(out, pt)
		vals = vals[:0]
	}
	for i, pt := range points {
		if i > 0 && compareCells(points[i-1].Label, pt.Label) != 0 {
			flush(points[i-1].Label)
		}
		if withValues {
			x, _ := toFloat(pt.Value)
			vals = append(vals, x)
		}
	}
	if len(points) > 0 {
		flush(points[len(points)-1].Label)
	}
	return out
}

// compareCells orders nil first, then numbers, then text.
func compareCells(a, b any) int {
	ra, rb := cellRank(a), cellRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 1:
		x, _ := toFloat(a)
		y, _ := toFloat(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(FormatCell(a), FormatCell(b))
	}
	return 0
}

func cellRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int64, float64:
		return 1
	default:
		return 2
	}
}
