package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/LdDl/openscore-go/result"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func score(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// Text renders play evaluation as console tables followed by feedback lists
func Text(w io.Writer, res *result.Result) error {
	summary := res.Summary
	var b strings.Builder

	fmt.Fprintf(&b, "Overall: %s (grade %s)\n", score(summary.OverallScore), summary.OverallGrade)
	fmt.Fprintf(&b, "%s\n\n", summary.Summary)

	stats := summary.Statistics
	b.WriteString(renderTable(
		[]string{"Frames", "Gaps", "Tracks", "Receivers", "Samples", "Avg OpenScore", "Decision quality"},
		[][]string{{
			fmt.Sprint(stats.FramesProcessed),
			fmt.Sprint(res.Diagnostics.GapFrames()),
			fmt.Sprint(stats.TracksDetected),
			fmt.Sprint(stats.ReceiversTracked),
			fmt.Sprint(stats.SamplesScored),
			score(stats.AvgOpenScore),
			score(stats.DecisionQuality),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	b.WriteString("\n\n")

	if res.Diagnostics.DetectorError != "" {
		fmt.Fprintf(&b, "Detector stopped early: %s\n\n", res.Diagnostics.DetectorError)
	}

	if len(summary.BestOptions) > 0 {
		rows := make([][]string, 0, len(summary.BestOptions))
		for _, opt := range summary.BestOptions {
			rows = append(rows, []string{fmt.Sprint(opt.Rank), opt.Receiver, score(opt.Mean), score(opt.Peak), opt.Consistency})
		}
		b.WriteString("Best options\n")
		b.WriteString(renderTable(
			[]string{"#", "Receiver", "Mean", "Peak", "Consistency"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
		))
		b.WriteString("\n\n")
	}

	if len(summary.KeyMoments) > 0 {
		rows := make([][]string, 0, len(summary.KeyMoments))
		for _, km := range summary.KeyMoments {
			rows = append(rows, []string{fmt.Sprint(km.FrameID), receiverLabel(km.TrackID), score(km.Score), km.Description})
		}
		b.WriteString("Key moments\n")
		b.WriteString(renderTable(
			[]string{"Frame", "Receiver", "Score", "Description"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
		))
		b.WriteString("\n\n")
	}

	if len(summary.MissedOpportunities) > 0 {
		rows := make([][]string, 0, len(summary.MissedOpportunities))
		for _, mo := range summary.MissedOpportunities {
			rows = append(rows, []string{mo.Receiver, score(mo.Peak), fmt.Sprint(mo.PeakFrame), mo.Note})
		}
		b.WriteString("Missed opportunities\n")
		b.WriteString(renderTable(
			[]string{"Receiver", "Peak", "Frame", "Note"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
		))
		b.WriteString("\n\n")
	}

	writeList(&b, "Strengths", summary.Strengths)
	writeList(&b, "Improvements", summary.Improvements)
	writeList(&b, "Recommendations", summary.Recommendations)

	if res.Enrichment != nil && res.Enrichment.Text != "" {
		fmt.Fprintf(&b, "Commentary (%s)\n  %s\n", res.Enrichment.Provider, res.Enrichment.Text)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title)
	b.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
	b.WriteString("\n")
}
