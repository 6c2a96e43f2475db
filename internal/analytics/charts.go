package analytics

import (
	"bytes"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/hpungsan/funnelmkt/internal/crm"
)

const chartHeight = "360px"

// ChartOptions configures chart rendering.
type ChartOptions struct {
	// AssetsHost serves echarts.min.js. Empty uses the go-echarts CDN.
	AssetsHost string
	Theme      string
}

// PipelineChart renders a bar chart of clients per stage as a standalone
// HTML page.
func PipelineChart(s crm.Stats, o ChartOptions) (string, error) {
	stages := crm.Stages()
	xAxis := make([]string, len(stages))
	data := make([]opts.BarData, len(stages))
	for i, stage := range stages {
		xAxis[i] = string(stage)
		data[i] = opts.BarData{Name: string(stage), Value: s.ByStage[stage]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions("Pipeline", "clients per stage", o)...)
	bar.SetXAxis(xAxis)
	bar.AddSeries("Clients", data)
	return renderChart(bar)
}

// ChannelChart renders a pie chart of preferred contact channels.
func ChannelChart(s crm.Stats, o ChartOptions) (string, error) {
	channels := crm.Channels()
	data := make([]opts.PieData, 0, len(channels))
	for _, c := range channels {
		data = append(data, opts.PieData{Name: string(c), Value: s.ByChannel[c]})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(globalOptions("Contact channels", "", o)...)
	pie.AddSeries("Channels", data)
	return renderChart(pie)
}

func globalOptions(title, subtitle string, o ChartOptions) []charts.GlobalOpts {
	theme := o.Theme
	if theme == "" {
		theme = types.ThemeWesteros
	}
	initOpts := opts.Initialization{
		PageTitle: title,
		Theme:     theme,
		Width:     "100%",
		Height:    chartHeight,
	}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(initOpts),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
