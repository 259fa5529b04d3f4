package dataset

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
)

// Options controls how tabular files are read.
type Options struct {
	// Delimiter for CSV. If 0, '.tsv' files use tab and everything else comma.
	Delimiter rune
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// SheetName selects an XLSX sheet by name (case-insensitive).
	SheetName string
	// SheetIndex is the 1-based XLSX sheet used when SheetName is empty.
	SheetIndex int
}

// DefaultOptions returns reasonable defaults for dataset loading.
func DefaultOptions() Options {
	return Options{MaxRows: 100000, SheetIndex: 1}
}

// Loader reads one tabular file format into a dataset of text cells.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) (*chart.Dataset, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// ErrUnsupported indicates a format no loader accepts.
var ErrUnsupported = errors.New("unsupported dataset format")

// Load picks a loader by filename and returns the dataset with every cell as text.
func Load(path string, opt Options) (*chart.Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(path, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}

// uniqueHeaders trims header names, names blank ones "Unnamed: <i>" and suffixes
// repeats with ".1", ".2", ...
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for seen[name] > 0 {
			name = fmt.Sprintf("%s.%d", base, seen[base])
			seen[base]++
		}
		seen[name]++
		out[i] = name
	}
	return out
}
