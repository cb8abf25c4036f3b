// Package plot renders a player's rating history as an interactive HTML
// chart.
package plot

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/apetrov-dev/piutop/internal/model"
)

// RatingHistory writes a line chart of the profile's rating over time to
// outputPath.
func RatingHistory(p *model.Profile, outputPath string) error {
	if len(p.RatingHistory) == 0 {
		return fmt.Errorf("%s has no rating history", p.Nickname)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "900px",
			Height: "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s — rating", p.Nickname),
			Subtitle: fmt.Sprintf("%d battles", p.BattleCount),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
	)

	xLabels := make([]string, len(p.RatingHistory))
	yData := make([]opts.LineData, len(p.RatingHistory))
	for i, point := range p.RatingHistory {
		xLabels[i] = point.Date.Format("2006-01-02")
		yData[i] = opts.LineData{Value: point.Rating}
	}

	line.SetXAxis(xLabels).
		AddSeries("rating", yData).
		SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{
				Smooth: opts.Bool(true),
			}),
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(false),
			}),
		)

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	if err := line.Render(f); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
