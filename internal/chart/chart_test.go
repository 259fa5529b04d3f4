package chart

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesDataset() *Dataset {
	return NewDataset([]string{"region", "sales"}, []Row{
		{"region": "A", "sales": int64(10)},
		{"region": "A", "sales": int64(30)},
		{"region": "B", "sales": int64(20)},
	})
}

func TestBuildBarGroupsByLabelMean(t *testing.T) {
	p, err := NewBuilder(nil).Build(salesDataset(), []string{"region", "sales"}, Bar)
	require.NoError(t, err)

	assert.Equal(t, Bar, p.ChartType)
	assert.Equal(t, "region", p.LabelsKey)
	assert.Equal(t, "sales", p.ValuesKey)
	require.Len(t, p.Data, 2)
	assert.Equal(t, Point{Label: "A", Value: 20.0}, p.Data[0])
	assert.Equal(t, Point{Label: "B", Value: 20.0}, p.Data[1])
	assert.Equal(t, "region", p.Options.XTitle())
	assert.Equal(t, DefaultYTitle, p.Options.YTitle())
	assert.True(t, p.Options.YFromZero())
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	ds := FromRecords([]string{"month", "amount"}, [][]string{
		{"3", "10"}, {"1", "12"}, {"2", "11"}, {"4", "1000"},
	})
	before := ds.Clone()

	_, err := NewBuilder(nil).Build(ds, []string{"month", "amount"}, Line)
	require.NoError(t, err)
	assert.Equal(t, before.Rows, ds.Rows)
	assert.Equal(t, TypeText, ds.Type("amount"))
}

func TestBuildSortsNumericLabels(t *testing.T) {
	ds := FromRecords([]string{"year", "value"}, [][]string{
		{"2021", "3.5"}, {"2019", "1.5"}, {"2020", "2.5"}, {"2019", "2.5"},
	})
	p, err := NewBuilder(nil).Build(ds, []string{"year", "value"}, Line)
	require.NoError(t, err)
	require.Len(t, p.Data, 3)
	assert.Equal(t, []Point{
		{Label: int64(2019), Value: 2.0},
		{Label: int64(2020), Value: 2.5},
		{Label: int64(2021), Value: 3.5},
	}, p.Data)
}

func TestBuildGroupingInvariant(t *testing.T) {
	ds := FromRecords([]string{"cat", "v"}, [][]string{
		{"x", "1"}, {"y", "4"}, {"x", "2"}, {"z", "7"}, {"y", "6"}, {"x", "3"},
	})
	p, err := NewBuilder(nil).Build(ds, []string{"cat", "v"}, Bar)
	require.NoError(t, err)

	want := map[string]float64{"x": 2, "y": 5, "z": 7}
	seen := map[any]bool{}
	for _, pt := range p.Data {
		assert.False(t, seen[pt.Label], "duplicate label %v", pt.Label)
		seen[pt.Label] = true
		assert.InDelta(t, want[pt.Label.(string)], pt.Value.(float64), 1e-9)
	}
	assert.Len(t, p.Data, 3)
}

func TestBuildPickFirstNumericAmongSeveralValueColumns(t *testing.T) {
	ds := FromRecords([]string{"name", "note", "score", "rank"}, [][]string{
		{"a", "hi", "1.5", "1"}, {"b", "yo", "2.5", "2"},
	})
	p, err := NewBuilder(nil).Build(ds, []string{"name", "note", "score", "rank"}, Bar)
	require.NoError(t, err)
	assert.Equal(t, "score", p.ValuesKey)
}

func TestBuildCustomValueSelector(t *testing.T) {
	last := func(ds *Dataset, cands []string) (string, bool) { return cands[len(cands)-1], true }
	ds := FromRecords([]string{"name", "score", "rank"}, [][]string{{"a", "1", "2"}})
	p, err := NewBuilder(nil, WithValueSelector(last), WithYTitle("Rank")).Build(ds, []string{"name", "score", "rank"}, Bar)
	require.NoError(t, err)
	assert.Equal(t, "rank", p.ValuesKey)
	assert.Equal(t, "Rank", p.Options.YTitle())
}

func TestBuildLabelOnly(t *testing.T) {
	ds := FromRecords([]string{"tag"}, [][]string{{"b"}, {"a"}, {"b"}})
	p, err := NewBuilder(nil).Build(ds, []string{"tag"}, Bar)
	require.NoError(t, err)
	assert.Equal(t, DefaultValuesKey, p.ValuesKey)
	assert.Equal(t, []Point{{Label: "a"}, {Label: "b"}}, p.Data)
}

func TestBuildErrors(t *testing.T) {
	ds := FromRecords([]string{"cat", "amount", "note"}, [][]string{
		{"a", "1", "x"}, {"b", "2", "y"},
	})
	cases := []struct {
		name    string
		columns []string
		ct      ChartType
		want    error
	}{
		{"empty selection", nil, Bar, ErrSchema},
		{"missing column", []string{"cat", "nope"}, Bar, ErrSchema},
		{"duplicate column", []string{"amount", "amount"}, Bar, ErrSchema},
		{"duplicate pie column", []string{"cat", "cat"}, Pie, ErrSchema},
		{"pie with three columns", []string{"cat", "amount", "note"}, Pie, ErrChartTypeMismatch},
		{"doughnut with one column", []string{"cat"}, Doughnut, ErrChartTypeMismatch},
		{"text value column", []string{"cat", "note"}, Bar, ErrNoNumericColumn},
		{"no numeric among many", []string{"amount", "cat", "note"}, Line, ErrNoNumericColumn},
		{"pie text values", []string{"amount", "note"}, Pie, ErrNoNumericColumn},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBuilder(nil).Build(ds, tc.columns, tc.ct)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.True(t, KindOf(err).Fatal())
		})
	}
}

func TestBuildPieShape(t *testing.T) {
	ds := FromRecords([]string{"category", "amount", "other"}, [][]string{
		{"food", "12", "q"}, {"rent", "40", "r"}, {"fun", "8.5", "s"},
	})
	p, err := NewBuilder(nil).Build(ds, []string{"category", "amount"}, Pie)
	require.NoError(t, err)
	assert.Nil(t, p.Options.Scales)
	assert.Equal(t, []Point{
		{Label: "food", Value: 12.0},
		{Label: "rent", Value: 40.0},
		{Label: "fun", Value: 8.5},
	}, p.Data)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	var decoded struct {
		Data    []map[string]any `json:"data"`
		Options map[string]any   `json:"options"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	for _, d := range decoded.Data {
		assert.Len(t, d, 2)
		assert.Contains(t, d, "category")
		assert.Contains(t, d, "amount")
	}
	assert.NotContains(t, decoded.Options, "scales")
}

func TestPayloadJSON(t *testing.T) {
	p, err := NewBuilder(nil).Build(salesDataset(), []string{"region", "sales"}, Bar)
	require.NoError(t, err)
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"chartType": "bar",
		"data": [{"region": "A", "sales": 20}, {"region": "B", "sales": 20}],
		"labelsKey": "region",
		"valuesKey": "sales",
		"options": {"scales": {
			"y": {"beginAtZero": true, "title": {"display": true, "text": "Value"}},
			"x": {"title": {"display": true, "text": "region"}}
		}}
	}`, string(b))
}

func TestSynthesize(t *testing.T) {
	ds := FromRecords([]string{"category", "amount"}, [][]string{
		{"food", "10"}, {"rent", "30"},
	})
	res, err := NewBuilder(nil).Synthesize(ds, "I would use a pie chart with category and amount columns, because shares")
	require.NoError(t, err)
	assert.Equal(t, Pie, res.Payload.ChartType)
	assert.Equal(t, []string{"category", "amount"}, res.Inference.Columns.Names())
	assert.Equal(t, "I would use a pie chart with category and amount columns", res.Summary)
}

func TestSynthesizeNoChartType(t *testing.T) {
	ds := FromRecords([]string{"a", "b"}, [][]string{{"x", "1"}})
	_, err := NewBuilder(nil).Synthesize(ds, "use columns a and b")
	require.Error(t, err)
	assert.Equal(t, KindNoChartType, KindOf(err))
}

func TestSynthesizeReportsDegenerateColumns(t *testing.T) {
	ds := FromRecords([]string{"k", "v"}, [][]string{{"a", "5"}, {"b", "5"}})
	res, err := NewBuilder(nil).Synthesize(ds, "bar of k by v")
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.True(t, errors.Is(res.Diagnostics[0], ErrDegenerateData))
	assert.False(t, KindOf(res.Diagnostics[0]).Fatal())
	assert.Len(t, res.Payload.Data, 2)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("boom")))
	wrapped := &Error{Kind: KindSchema, Msg: "x"}
	assert.Equal(t, KindSchema, KindOf(wrapped))
	assert.Contains(t, (&Error{Kind: KindSchema, Column: "c", Msg: "bad"}).Error(), `column "c"`)
}

func TestBuildKeepsFloatLabels(t *testing.T) {
	ds := FromRecords([]string{"x", "y"}, [][]string{{"1.5", "4"}, {"1.2", "2"}, {"1.5", "6"}})
	p, err := NewBuilder(nil).Build(ds, []string{"x", "y"}, Line)
	require.NoError(t, err)
	assert.Equal(t, []Point{{Label: 1.2, Value: 2.0}, {Label: 1.5, Value: 5.0}}, p.Data)
}
