package cmd

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/philcn/RaysRenderer/pkg/denoiser"
	"github.com/philcn/RaysRenderer/pkg/imgstat"
	"github.com/philcn/RaysRenderer/pkg/svgf"
	"github.com/philcn/RaysRenderer/pkg/synth"
	"github.com/philcn/RaysRenderer/pkg/texture"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	return table
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3f ms", float64(d)/float64(time.Millisecond))
}

// writeStageTable renders per-stage timings of one denoised frame.
func writeStageTable(w io.Writer, stats denoiser.FrameStats) {
	table := newTable(w, []string{"Signal", "Reprojection", "Variance", "A-trous", "Passes", "Feedback", "Total"})
	for _, s := range denoiser.AllSignals {
		st, ok := stats.Signals[s]
		if !ok {
			continue
		}
		table.Append([]string{
			s.String(),
			formatDuration(st.Reprojection),
			formatDuration(st.VarianceEstimation),
			formatDuration(st.AtrousTotal()),
			fmt.Sprintf("%d", len(st.Atrous)),
			formatDuration(st.Feedback),
			formatDuration(st.Total),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "WALL", formatDuration(stats.Wall)})
	table.Render()
}

// writePipelineTable renders the stage timings of a single pipeline.
func writePipelineTable(w io.Writer, name string, st svgf.Stats) {
	table := newTable(w, []string{"Pipeline", "Stage", "Time"})
	table.Append([]string{name, "reprojection", formatDuration(st.Reprojection)})
	table.Append([]string{name, "variance", formatDuration(st.VarianceEstimation)})
	for i, d := range st.Atrous {
		table.Append([]string{name, fmt.Sprintf("a-trous %d (step %d)", i+1, 1<<i), formatDuration(d)})
	}
	table.Append([]string{name, "feedback", formatDuration(st.Feedback)})
	table.SetFooter([]string{"", "TOTAL", formatDuration(st.Total)})
	table.Render()
}

// writeQualityTable compares noisy and denoised signals against the
// reference of a synthetic frame.
func writeQualityTable(w io.Writer, frame *synth.Frame, outputs map[denoiser.Signal]*texture.Texture) error {
	table := newTable(w, []string{"Signal", "Noisy RMSE", "Denoised RMSE", "Noisy variance", "Denoised variance"})
	for _, s := range denoiser.AllSignals {
		out, ok := outputs[s]
		if !ok {
			continue
		}
		noisyRMSE, err := imgstat.RMSE(frame.Noisy[s], frame.Reference[s])
		if err != nil {
			return err
		}
		outRMSE, err := imgstat.RMSE(out, frame.Reference[s])
		if err != nil {
			return err
		}
		table.Append([]string{
			s.String(),
			fmt.Sprintf("%.5f", noisyRMSE),
			fmt.Sprintf("%.5f", outRMSE),
			fmt.Sprintf("%.5f", imgstat.LuminanceStats(frame.Noisy[s]).Variance),
			fmt.Sprintf("%.5f", imgstat.LuminanceStats(out).Variance),
		})
	}
	table.Render()
	return nil
}

func displayFrameStats(stats denoiser.FrameStats) {
	var buf bytes.Buffer
	writeStageTable(&buf, stats)
	logger.Noticef("frame %d statistics\n%s", stats.Frame, buf.String())
}

func displayQuality(frame *synth.Frame, outputs map[denoiser.Signal]*texture.Texture) error {
	var buf bytes.Buffer
	if err := writeQualityTable(&buf, frame, outputs); err != nil {
		return err
	}
	logger.Noticef("quality against reference\n%s", buf.String())
	return nil
}
