package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/LdDl/openscore-go/result"
)

// ChartOptions tune HTML chart
type ChartOptions struct {
	// Threshold draws horizontal "clearly open" line, zero hides it
	Threshold float64
	// AssetsHost overrides where echarts javascript is loaded from
	AssetsHost string
}

// Chart writes standalone HTML page with openness of every receiver over frames.
// Frames where a receiver was not scored are left as holes in its line.
func Chart(w io.Writer, res *result.Result, options ChartOptions) error {
	frameIDs, series := openSeries(res)

	line := charts.NewLine()
	init := opts.Initialization{
		PageTitle: "OpenScore",
		Width:     "1200px",
		Height:    "600px",
	}
	if options.AssetsHost != "" {
		init.AssetsHost = options.AssetsHost
	}
	line.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{
			Title:    "Receiver openness",
			Subtitle: fmt.Sprintf("grade %s, overall %.1f", res.Summary.OverallGrade, res.Summary.OverallScore),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "OpenScore", Min: 0, Max: 100}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(frameIDs)

	trackIDs := make([]int, 0, len(series))
	for id := range series {
		trackIDs = append(trackIDs, id)
	}
	sort.Ints(trackIDs)
	for i, id := range trackIDs {
		seriesOpts := []charts.SeriesOpts{
			charts.WithLineChartOpts(opts.LineChart{ConnectNulls: opts.Bool(false)}),
		}
		if i == 0 && options.Threshold > 0 {
			seriesOpts = append(seriesOpts, charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{
				Name:  "clearly open",
				YAxis: options.Threshold,
			}))
		}
		line.AddSeries(receiverLabel(id), series[id], seriesOpts...)
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// openSeries lays out samples on common frame axis
func openSeries(res *result.Result) ([]int, map[int][]opts.LineData) {
	frameIDs := make([]int, 0)
	index := make(map[int]int)
	for _, s := range res.Samples {
		if _, ok := index[s.FrameID]; !ok {
			index[s.FrameID] = len(frameIDs)
			frameIDs = append(frameIDs, s.FrameID)
		}
	}
	sort.Ints(frameIDs)
	for i, id := range frameIDs {
		index[id] = i
	}
	series := make(map[int][]opts.LineData)
	for _, s := range res.Samples {
		data, ok := series[s.TrackID]
		if !ok {
			data = make([]opts.LineData, len(frameIDs))
			series[s.TrackID] = data
		}
		data[index[s.FrameID]] = opts.LineData{Value: s.Score}
	}
	return frameIDs, series
}

func receiverLabel(trackID int) string {
	return fmt.Sprintf("Receiver %d", trackID)
}
