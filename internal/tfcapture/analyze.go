//go:build pcap

// Package tfcapture replays a pcap capture of UDP-transported
// tfwire.Sample traffic and computes per-edge timing and rate
// statistics, the way the teacher's pcap-analyze tool replays LIDAR
// packet captures through its tracking pipeline.
package tfcapture

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/kinemesh/frametf/internal/tfwire"
)

// EdgeStats summarizes the samples observed for one child→parent edge
// across a capture.
type EdgeStats struct {
	Child, Parent string
	Count         int
	FirstStamp    time.Time
	LastStamp     time.Time
	MinGap        time.Duration
	MaxGap        time.Duration
	AvgGap        time.Duration
}

// Result is the summary produced by AnalyzeFile.
type Result struct {
	TotalPackets int
	Malformed    int
	Edges        map[string]*EdgeStats
}

func edgeKey(child, parent string) string { return child + "<-" + parent }

// AnalyzeFile opens path with pcap.OpenOffline, applies a BPF filter
// for udpPort, and accumulates per-edge timing statistics over every
// decodable tfwire.Sample payload in the capture.
func AnalyzeFile(path string, udpPort uint16) (*Result, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("tfcapture: open %s: %w", path, err)
	}
	defer handle.Close()

	if err := handle.SetBPFFilter(fmt.Sprintf("udp port %d", udpPort)); err != nil {
		return nil, fmt.Errorf("tfcapture: set BPF filter: %w", err)
	}

	return analyze(handle, udpPort)
}

func analyze(handle *pcap.Handle, udpPort uint16) (*Result, error) {
	result := &Result{Edges: make(map[string]*EdgeStats)}
	byKey := make(map[string][]time.Time)

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	for packet := range source.Packets() {
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp := udpLayer.(*layers.UDP)
		if uint16(udp.DstPort) != udpPort || len(udp.Payload) == 0 {
			continue
		}
		result.TotalPackets++

		sample, err := tfwire.DecodeSample(udp.Payload)
		if err != nil {
			result.Malformed++
			continue
		}

		key := edgeKey(sample.ChildFrame, sample.ParentFrame)
		stats, ok := result.Edges[key]
		if !ok {
			stats = &EdgeStats{Child: sample.ChildFrame, Parent: sample.ParentFrame}
			result.Edges[key] = stats
			stats.MinGap = -1
		}

		stamp := sample.Stamp.Time()
		stats.Count++
		if stats.FirstStamp.IsZero() || stamp.Before(stats.FirstStamp) {
			stats.FirstStamp = stamp
		}
		if stamp.After(stats.LastStamp) {
			stats.LastStamp = stamp
		}
		byKey[key] = append(byKey[key], stamp)
	}

	for key, stamps := range byKey {
		finalizeGaps(result.Edges[key], stamps)
	}

	return result, nil
}

// finalizeGaps sorts the observed stamps for an edge and derives
// min/max/avg inter-sample gaps from the sorted sequence.
func finalizeGaps(stats *EdgeStats, stamps []time.Time) {
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	if len(stamps) < 2 {
		stats.MinGap = 0
		stats.MaxGap = 0
		return
	}

	var total time.Duration
	min := stamps[1].Sub(stamps[0])
	max := min
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		total += gap
		if gap < min {
			min = gap
		}
		if gap > max {
			max = gap
		}
	}
	stats.MinGap = min
	stats.MaxGap = max
	stats.AvgGap = total / time.Duration(len(stamps)-1)
}

// Summary renders a human-readable report of a Result, in the style of
// the teacher's printSummary.
func Summary(r *Result) string {
	out := fmt.Sprintf("packets=%d malformed=%d edges=%d\n", r.TotalPackets, r.Malformed, len(r.Edges))
	keys := make([]string, 0, len(r.Edges))
	for k := range r.Edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := r.Edges[k]
		rate := 0.0
		if span := e.LastStamp.Sub(e.FirstStamp).Seconds(); span > 0 {
			rate = float64(e.Count) / span
		}
		out += fmt.Sprintf("  %s -> %s: count=%d rate=%.2fHz min_gap=%s max_gap=%s avg_gap=%s\n",
			e.Child, e.Parent, e.Count, rate, e.MinGap, e.MaxGap, e.AvgGap)
	}
	return out
}
