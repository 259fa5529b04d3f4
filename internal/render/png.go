package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	width  = 1024
	height = 512
)

// ErrNoValues is returned for payloads whose points carry labels only.
var ErrNoValues = errors.New("payload has no numeric values to plot")

// PNG draws a static preview of the payload: bars, a line over labelled ticks, or a pie.
func PNG(w io.Writer, p *chart.Payload) error {
	if p == nil || len(p.Data) == 0 {
		return errors.New("payload is empty")
	}
	labels, values, err := series(p)
	if err != nil {
		return err
	}
	switch p.ChartType {
	case chart.Bar:
		return renderBar(w, p, labels, values)
	case chart.Line:
		return renderLine(w, p, labels, values)
	case chart.Pie, chart.Doughnut:
		return renderPie(w, labels, values)
	}
	return fmt.Errorf("unsupported chart type %q", p.ChartType)
}

func series(p *chart.Payload) ([]string, []float64, error) {
	labels := make([]string, len(p.Data))
	values := make([]float64, len(p.Data))
	for i, pt := range p.Data {
		labels[i] = chart.FormatCell(pt.Label)
		switch v := pt.Value.(type) {
		case nil:
			return nil, nil, ErrNoValues
		case int64:
			values[i] = float64(v)
		case float64:
			values[i] = v
		default:
			return nil, nil, fmt.Errorf("point %d: value %v is not numeric", i, pt.Value)
		}
	}
	return labels, values, nil
}

func background() gochart.Style {
	return gochart.Style{
		Padding:     gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		FillColor:   drawing.ColorWhite,
		StrokeColor: drawing.ColorFromHex("efefef"),
		StrokeWidth: 1,
	}
}

// valueRange spans the data, including zero when the y axis starts there.
// A flat series gets a unit-wide range.
func valueRange(values []float64, fromZero bool) *gochart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if fromZero {
		lo, hi = math.Min(lo, 0), math.Max(hi, 0)
	}
	if hi <= lo {
		hi = lo + 1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}

func renderBar(w io.Writer, p *chart.Payload, labels []string, values []float64) error {
	bars := make([]gochart.Value, len(values))
	for i := range values {
		bars[i] = gochart.Value{Label: labels[i], Value: values[i]}
	}
	graph := gochart.BarChart{
		Title:      p.Options.XTitle(),
		Background: background(),
		Width:      width,
		Height:     height,
		BarWidth:   max(8, min(60, width/(2*len(bars)))),
		BarSpacing: max(4, min(100, width/(2*len(bars)))),
		Bars:       bars,
		YAxis: gochart.YAxis{
			Name:  p.Options.YTitle(),
			Range: valueRange(values, p.Options.YFromZero()),
		},
	}
	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

func renderLine(w io.Writer, p *chart.Payload, labels []string, values []float64) error {
	n := len(values)
	xs := make([]float64, n)
	// go-chart takes the x range from the ticks; the unlabelled edge ticks pad it by half a
	// slot on each side and keep it non-empty for a single point.
	ticks := make([]gochart.Tick, 0, n+2)
	ticks = append(ticks, gochart.Tick{Value: -0.5})
	for i := range values {
		xs[i] = float64(i)
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: labels[i]})
	}
	ticks = append(ticks, gochart.Tick{Value: float64(n) - 0.5})
	ys := values
	if n == 1 {
		xs = []float64{-0.5, 0.5}
		ys = []float64{values[0], values[0]}
	}
	graph := gochart.Chart{
		Background: background(),
		Width:      width,
		Height:     height,
		XAxis: gochart.XAxis{
			Name:  p.Options.XTitle(),
			Ticks: ticks,
		},
		YAxis: gochart.YAxis{
			Name:  p.Options.YTitle(),
			Range: valueRange(values, p.Options.YFromZero()),
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    p.ValuesKey,
				XValues: xs,
				YValues: ys,
				Style:   gochart.Style{StrokeColor: drawing.ColorBlue, StrokeWidth: 2, DotWidth: 3, DotColor: drawing.ColorBlue},
			},
		},
	}
	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render line chart: %w", err)
	}
	return nil
}

func renderPie(w io.Writer, labels []string, values []float64) error {
	slices := make([]gochart.Value, 0, len(values))
	for i, v := range values {
		if v < 0 {
			return fmt.Errorf("pie slice %q has negative value %v", labels[i], v)
		}
		slices = append(slices, gochart.Value{Label: labels[i], Value: v})
	}
	graph := gochart.PieChart{
		Background: background(),
		Width:      height,
		Height:     height,
		Values:     slices,
	}
	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}
