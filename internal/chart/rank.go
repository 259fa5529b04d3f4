package chart

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// NotFound is the offset recorded for a candidate that does not occur in the text.
const NotFound = -1

// ChartTypeVocabulary lists the chart-type tokens looked up in model responses.
var ChartTypeVocabulary = []string{"bar", "line", "pie"}

// Candidate is a name with the character offset of its first occurrence.
type Candidate struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
}

// Ranking orders present candidates by ascending first-occurrence offset.
type Ranking []Candidate

// Names returns candidate names in rank order.
func (r Ranking) Names() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Name
	}
	return out
}

// First returns the earliest-mentioned candidate.
func (r Ranking) First() (Candidate, bool) {
	if len(r) == 0 {
		return Candidate{}, false
	}
	return r[0], true
}

// FirstOffsets maps every candidate to the character offset of its first exact, case-sensitive
// substring match in text, or NotFound. Duplicate candidates are collapsed.
func FirstOffsets(text string, candidates []string) map[string]int {
	out := make(map[string]int, len(candidates))
	for _, c := range candidates {
		out[c] = runeOffset(text, c)
	}
	return out
}

// Rank returns the candidates occurring in text, earliest first. Candidates at the same
// offset keep their input order; absent candidates are dropped.
func Rank(text string, candidates []string) Ranking {
	offsets := FirstOffsets(text, candidates)
	seen := make(map[string]bool, len(candidates))
	out := make(Ranking, 0, len(candidates))
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		if off := offsets[c]; off != NotFound {
			out = append(out, Candidate{Name: c, Offset: off})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// Inference is what a model response says about chart type and columns.
type Inference struct {
	ChartTypes Ranking `json:"chartTypes"`
	Columns    Ranking `json:"columns"`
}

// Infer ranks the chart-type vocabulary and the dataset's columns against a response.
func Infer(response string, columns []string) Inference {
	return Inference{
		ChartTypes: Rank(response, ChartTypeVocabulary),
		Columns:    Rank(response, columns),
	}
}

// ChartType returns the earliest-mentioned chart type.
func (in Inference) ChartType() (ChartType, error) {
	c, ok := in.ChartTypes.First()
	if !ok {
		return "", newError(KindNoChartType, "", "response mentions none of %s", strings.Join(ChartTypeVocabulary, ", "))
	}
	return ChartType(c.Name), nil
}

// Shorten cuts text before its last comma. Text without a comma is returned unchanged.
func Shorten(text string) string {
	if i := strings.LastIndex(text, ","); i >= 0 {
		return text[:i]
	}
	return text
}

// runeOffset never matches an empty name.
func runeOffset(text, sub string) int {
	if sub == "" {
		return NotFound
	}
	i := strings.Index(text, sub)
	if i < 0 {
		return NotFound
	}
	return utf8.RuneCountInString(text[:i])
}
