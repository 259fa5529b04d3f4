package chart

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ChartType names a chart kind understood by the charting front end.
type ChartType string

const (
	Bar      ChartType = "bar"
	Line     ChartType = "line"
	Pie      ChartType = "pie"
	Doughnut ChartType = "doughnut"
)

// ParseChartType normalizes a user- or model-supplied chart type. Unknown names are kept
// and built like bar charts.
func ParseChartType(s string) ChartType {
	return ChartType(strings.ToLower(strings.TrimSpace(s)))
}

// Radial reports whether the type is drawn without axes (pie, doughnut).
func (t ChartType) Radial() bool {
	switch ParseChartType(string(t)) {
	case Pie, Doughnut:
		return true
	}
	return false
}

// DefaultValuesKey is used when no value column takes part in the chart.
const DefaultValuesKey = "Value"

// DefaultYTitle is the y-axis title unless overridden with WithYTitle.
const DefaultYTitle = "Value"

// AxisTitle mirrors the Chart.js scale title block.
type AxisTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

// Axis is one Chart.js scale.
type Axis struct {
	BeginAtZero *bool      `json:"beginAtZero,omitempty"`
	Title       *AxisTitle `json:"title,omitempty"`
}

// Scales holds the x and y axis of a cartesian chart.
type Scales struct {
	Y *Axis `json:"y,omitempty"`
	X *Axis `json:"x,omitempty"`
}

// Options carries chart options. Scales is nil for pie and doughnut charts.
type Options struct {
	Scales *Scales `json:"scales,omitempty"`
}

// XTitle returns the x-axis title, if any.
func (o Options) XTitle() string {
	if o.Scales == nil || o.Scales.X == nil || o.Scales.X.Title == nil {
		return ""
	}
	return o.Scales.X.Title.Text
}

// YTitle returns the y-axis title, if any.
func (o Options) YTitle() string {
	if o.Scales == nil || o.Scales.Y == nil || o.Scales.Y.Title == nil {
		return ""
	}
	return o.Scales.Y.Title.Text
}

// YFromZero reports whether the y axis starts at zero.
func (o Options) YFromZero() bool {
	return o.Scales != nil && o.Scales.Y != nil && o.Scales.Y.BeginAtZero != nil && *o.Scales.Y.BeginAtZero
}

func cartesianOptions(xTitle, yTitle string) Options {
	zero := true
	return Options{Scales: &Scales{
		Y: &Axis{BeginAtZero: &zero, Title: &AxisTitle{Display: true, Text: yTitle}},
		X: &Axis{Title: &AxisTitle{Display: true, Text: xTitle}},
	}}
}

// Point is one label/value pair. Value is nil when the chart has no value column.
type Point struct {
	Label any
	Value any
}

// Payload is the chart-library-ready structure. Data points serialize as objects keyed by
// LabelsKey and ValuesKey.
type Payload struct {
	ChartType ChartType
	LabelsKey string
	ValuesKey string
	Data      []Point
	Options   Options
}

type payloadJSON struct {
	ChartType ChartType         `json:"chartType"`
	Data      []json.RawMessage `json:"data"`
	LabelsKey string            `json:"labelsKey"`
	ValuesKey string            `json:"valuesKey"`
	Options   Options           `json:"options"`
}

// MarshalJSON writes data points as {"<labelsKey>": label, "<valuesKey>": value}.
func (p Payload) MarshalJSON() ([]byte, error) {
	w := payloadJSON{
		ChartType: p.ChartType,
		Data:      make([]json.RawMessage, 0, len(p.Data)),
		LabelsKey: p.LabelsKey,
		ValuesKey: p.ValuesKey,
		Options:   p.Options,
	}
	for _, pt := range p.Data {
		b, err := pt.marshalKeyed(p.LabelsKey, p.ValuesKey)
		if err != nil {
			return nil, err
		}
		w.Data = append(w.Data, b)
	}
	return json.Marshal(w)
}

func (pt Point) marshalKeyed(labelsKey, valuesKey string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeField(&buf, labelsKey, pt.Label); err != nil {
		return nil, err
	}
	if pt.Value != nil {
		buf.WriteByte(',')
		if err := writeField(&buf, valuesKey, pt.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, v any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}
