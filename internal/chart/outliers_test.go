package chart

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalized(t *testing.T, header []string, records [][]string) *Dataset {
	t.Helper()
	ds, diags := NormalizeTypes(FromRecords(header, records))
	require.Empty(t, diags)
	return ds
}

func TestFilterOutliersRemovesExtreme(t *testing.T) {
	ds := normalized(t, []string{"id", "v"}, [][]string{
		{"a", "1"}, {"b", "2"}, {"c", "100"}, {"d", "3"}, {"e", "4"},
	})
	out, rep, err := FilterOutliers(ds, "v")
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len())
	assert.Equal(t, 1, rep.Removed)
	assert.Equal(t, 2.0, rep.Q1)
	assert.Equal(t, 4.0, rep.Q3)
	assert.Equal(t, -1.0, rep.Lower)
	assert.Equal(t, 7.0, rep.Upper)
	assert.Equal(t, []any{"a", "b", "d", "e"}, out.Values("id"), "survivor order preserved")
	assert.Equal(t, 5, ds.Len(), "input untouched")
}

func TestFilterOutliersBoundsProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(40)
		rows := make([]Row, n)
		for i := range rows {
			v := rng.NormFloat64() * 10
			if rng.Intn(8) == 0 {
				v *= 25
			}
			rows[i] = Row{"v": v}
		}
		ds, _ := NormalizeTypes(NewDataset([]string{"v"}, rows))
		out, rep, err := FilterOutliers(ds, "v")
		require.NoError(t, err)

		kept := map[float64]int{}
		for _, x := range out.Values("v") {
			f, _ := toFloat(x)
			assert.GreaterOrEqual(t, f, rep.Lower)
			assert.LessOrEqual(t, f, rep.Upper)
			kept[f]++
		}
		for _, x := range ds.Values("v") {
			f, _ := toFloat(x)
			if kept[f] > 0 {
				kept[f]--
				continue
			}
			assert.True(t, f < rep.Lower || f > rep.Upper, "removed %v lies inside [%v, %v]", f, rep.Lower, rep.Upper)
		}
	}
}

func TestFilterOutliersDegenerate(t *testing.T) {
	empty := normalized(t, []string{"v"}, nil)
	out, rep, err := FilterOutliers(empty, "v")
	require.NoError(t, err)
	assert.True(t, rep.Degenerate)
	assert.Equal(t, 0, out.Len())

	constant := normalized(t, []string{"v"}, [][]string{{"5"}, {"5"}, {"5"}})
	out, rep, err = FilterOutliers(constant, "v")
	require.NoError(t, err)
	assert.True(t, rep.Degenerate)
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, 5.0, rep.Lower)
	assert.Equal(t, 5.0, rep.Upper)
}

func TestFilterOutliersConstantMajorityDropsOthers(t *testing.T) {
	ds := normalized(t, []string{"v"}, [][]string{{"5"}, {"5"}, {"5"}, {"5"}, {"6"}})
	out, rep, err := FilterOutliers(ds, "v")
	require.NoError(t, err)
	assert.True(t, rep.Degenerate)
	assert.Equal(t, 4, out.Len())
}

func TestFilterOutliersTextAndMissing(t *testing.T) {
	ds := normalized(t, []string{"name"}, [][]string{{"x"}, {"y"}})
	out, rep, err := FilterOutliers(ds, "name")
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
	assert.Equal(t, 2, out.Len())

	_, _, err = FilterOutliers(ds, "absent")
	assert.ErrorIs(t, err, ErrSchema)
}

func TestFilterOutliersChained(t *testing.T) {
	ds := normalized(t, []string{"a", "b"}, [][]string{
		{"1", "10"}, {"2", "11"}, {"3", "12"}, {"4", "13"}, {"100", "14"}, {"5", "500"},
	})
	step1, _, err := FilterOutliers(ds, "a")
	require.NoError(t, err)
	step2, _, err := FilterOutliers(step1, "b")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4)}, step2.Values("a"))
	assert.Equal(t, 6, ds.Len())
}

func TestQuantileLinear(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.75, quantile(s, 0.25))
	assert.Equal(t, 3.25, quantile(s, 0.75))
	assert.Equal(t, 1.0, quantile(s, 0))
	assert.Equal(t, 4.0, quantile(s, 1))
}
