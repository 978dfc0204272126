package tfviz

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kinemesh/frametf/internal/tf"
)

// RenderFrameTree builds an HTML page showing the current frame graph as
// a tree rooted at "/", each node labeled with its most recent
// authority.
func RenderFrameTree(graph *tf.FrameGraph) (string, error) {
	snap := graph.Snapshot()

	byParent := make(map[uint32][]tf.FrameInfo)
	for _, info := range snap {
		byParent[info.ParentID] = append(byParent[info.ParentID], info)
	}

	root := opts.TreeData{Name: "/"}
	root.Children = buildTreeChildren(tf.RootID, byParent)

	tree := charts.NewTree()
	tree.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "frametf frame tree", Theme: "dark", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Frame Tree", Subtitle: fmt.Sprintf("frames=%d rendered=%s", len(snap), time.Now().Format(time.RFC3339))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	tree.AddSeries("frames", []opts.TreeData{root},
		charts.WithTreeOpts(opts.TreeChart{Layout: "orthogonal", Orient: "LR", InitialTreeDepth: -1}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "left"}),
	)

	var buf bytes.Buffer
	if err := tree.Render(&buf); err != nil {
		return "", fmt.Errorf("tfviz: render frame tree: %w", err)
	}
	return buf.String(), nil
}

func buildTreeChildren(parentID uint32, byParent map[uint32][]tf.FrameInfo) []*opts.TreeData {
	children := byParent[parentID]
	if len(children) == 0 {
		return nil
	}
	out := make([]*opts.TreeData, 0, len(children))
	for _, c := range children {
		name := c.Name
		if c.Authority != "" {
			name = fmt.Sprintf("%s (%s)", c.Name, c.Authority)
		}
		out = append(out, &opts.TreeData{
			Name:     name,
			Children: buildTreeChildren(c.ID, byParent),
		})
	}
	return out
}

// RenderEdgeRates builds an HTML bar chart of each edge's observed
// update rate (samples retained / retained time span), the way the
// teacher's handleTrafficChart renders throughput counters.
func RenderEdgeRates(graph *tf.FrameGraph) (string, error) {
	snap := graph.Snapshot()

	x := make([]string, 0, len(snap))
	y := make([]opts.BarData, 0, len(snap))
	for _, info := range snap {
		history, err := graph.EdgeHistory(info.ID)
		if err != nil || len(history) < 2 {
			continue
		}
		span := history[len(history)-1].Stamp.Sub(history[0].Stamp).Seconds()
		rate := 0.0
		if span > 0 {
			rate = float64(len(history)) / span
		}
		x = append(x, info.Name)
		y = append(y, opts.BarData{Value: rate})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Edge Update Rates", Subtitle: time.Now().Format(time.RFC3339)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Hz"}),
	)
	bar.SetXAxis(x).AddSeries("rate", y, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", fmt.Errorf("tfviz: render edge rates: %w", err)
	}
	return buf.String(), nil
}
