// Package tfviz renders FrameGraph state for humans: PNG timelines of an
// edge's translation components over time, and an HTML dashboard showing
// the current frame tree and per-edge update rates.
package tfviz

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/kinemesh/frametf/internal/tf"
)

// PlotEdgeTimeline renders the translation (x, y, z) history of
// childID's edge to a PNG at path, one line per axis.
func PlotEdgeTimeline(graph *tf.FrameGraph, childID uint32, path string) error {
	history, err := graph.EdgeHistory(childID)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("tfviz: no samples retained for frame id %d", childID)
	}

	name, err := graph.LookupName(childID)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s translation", name)
	p.X.Label.Text = "time (s, relative to first sample)"
	p.Y.Label.Text = "meters"

	t0 := history[0].Stamp
	xPts := make(plotter.XYs, len(history))
	yPts := make(plotter.XYs, len(history))
	zPts := make(plotter.XYs, len(history))
	for i, s := range history {
		t := s.Stamp.Sub(t0).Seconds()
		xPts[i] = plotter.XY{X: t, Y: s.Transform.Translation[0]}
		yPts[i] = plotter.XY{X: t, Y: s.Transform.Translation[1]}
		zPts[i] = plotter.XY{X: t, Y: s.Transform.Translation[2]}
	}

	for _, series := range []struct {
		label string
		pts   plotter.XYs
	}{{"x", xPts}, {"y", yPts}, {"z", zPts}} {
		line, err := plotter.NewLine(series.pts)
		if err != nil {
			return fmt.Errorf("tfviz: build %s line: %w", series.label, err)
		}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(series.label, line)
	}
	p.Legend.Top = true

	if err := p.Save(12*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("tfviz: save %s: %w", path, err)
	}
	return nil
}

// PlotAllTimelines renders one PNG per currently-registered frame into
// outputDir, named <frame>.png, skipping frames with no retained
// samples. It returns the number of files written.
func PlotAllTimelines(graph *tf.FrameGraph, outputDir string) (int, error) {
	written := 0
	for _, info := range graph.Snapshot() {
		path := filepath.Join(outputDir, info.Name+".png")
		if err := PlotEdgeTimeline(graph, info.ID, path); err != nil {
			continue
		}
		written++
	}
	return written, nil
}
