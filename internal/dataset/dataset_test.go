package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestReadCSV(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("region, sales\nNorth,10\n\nSouth,20\nEast\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "sales"}, ds.Columns)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, "South", ds.Rows[1]["region"])
	assert.Equal(t, "", ds.Rows[2]["sales"])
	assert.NoError(t, ds.Validate())
}

func TestReadCSVEmptyInput(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Empty(t, ds.Columns)
	assert.Zero(t, ds.Len())
}

func TestReadCSVMaxRows(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("a\n1\n2\n3\n"), Options{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestUniqueHeaders(t *testing.T) {
	got := uniqueHeaders([]string{"\ufeffa", "a", " ", "a", "b"})
	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2", "a.2", "b"}, got)
}

func TestLoadTSV(t *testing.T) {
	p := writeFile(t, "data.tsv", "month\tvalue\nJan\t3\nFeb\t4\n")
	ds, err := Load(p, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"month", "value"}, ds.Columns)
	assert.Equal(t, "4", ds.Rows[1]["value"])
}

func TestLoadCSVCustomDelimiter(t *testing.T) {
	p := writeFile(t, "data.csv", "x;y\n1;2\n")
	opt := DefaultOptions()
	opt.Delimiter = ';'
	ds, err := Load(p, opt)
	require.NoError(t, err)
	assert.Equal(t, "2", ds.Rows[0]["y"])
}

func TestLoadUnsupported(t *testing.T) {
	p := writeFile(t, "notes.txt", "hello")
	_, err := Load(p, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), DefaultOptions())
	assert.Error(t, err)
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("Sales")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sales", "A1", &[]any{"region", "sales"}))
	require.NoError(t, f.SetSheetRow("Sales", "A2", &[]any{"North", 10}))
	require.NoError(t, f.SetSheetRow("Sales", "A3", &[]any{"South", 20.5}))
	p := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(p))

	opt := DefaultOptions()
	opt.SheetName = "sales"
	ds, err := Load(p, opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "sales"}, ds.Columns)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "20.5", ds.Rows[1]["sales"])

	opt = DefaultOptions()
	opt.SheetIndex = 2
	ds, err = Load(p, opt)
	require.NoError(t, err)
	assert.Equal(t, "North", ds.Rows[0]["region"])

	opt.SheetIndex = 5
	_, err = Load(p, opt)
	assert.ErrorContains(t, err, "out of range")

	opt = DefaultOptions()
	opt.SheetName = "Nope"
	_, err = Load(p, opt)
	assert.ErrorContains(t, err, "available sheets")
}

func TestSanitize(t *testing.T) {
	ds := chart.FromRecords([]string{"a", "b"}, [][]string{{"=SUM(A1)", "plain"}, {"-5", "@x"}})
	out := Sanitize(ds)
	assert.Equal(t, "\t=SUM(A1)", out.Rows[0]["a"])
	assert.Equal(t, "plain", out.Rows[0]["b"])
	assert.Equal(t, "\t@x", out.Rows[1]["b"])
	assert.Equal(t, "=SUM(A1)", ds.Rows[0]["a"], "input must not be modified")


	nums := Sanitize(chart.FromRecords([]string{"n"}, [][]string{{"-5"}, {"+3"}}))
	norm, diags := chart.NormalizeTypes(nums)
	assert.Empty(t, diags)
	assert.Equal(t, chart.TypeInteger, norm.Type("n"))
	assert.Equal(t, []any{int64(-5), int64(3)}, norm.Values("n"))
}

func TestPreview(t *testing.T) {
	ds := chart.FromRecords([]string{"region", "sales"}, [][]string{{"North", "10"}, {"South", "20"}})
	out := Preview(ds, 1)
	assert.Contains(t, out, "region")
	assert.Contains(t, out, "North")
	assert.NotContains(t, out, "South")
	assert.Empty(t, Preview(chart.NewDataset(nil, nil), 3))

	full := Table(ds)
	assert.Contains(t, full, "South")
}
