package tf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHook struct {
	events []AuditEvent
}

func (h *recordingHook) Record(e AuditEvent) {
	h.events = append(h.events, e)
}

func TestFrameGraph_InternIsStableAndDense(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)

	id1 := g.Intern("base_link")
	id2 := g.Intern("lidar")
	id1Again := g.Intern("base_link")

	assert.Equal(t, id1, id1Again)
	assert.NotEqual(t, id1, id2)
	assert.NotEqual(t, RootID, id1)
}

func TestFrameGraph_LookupUnknownFrame(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)

	_, err := g.LookupID("nonexistent")
	require.Error(t, err)
	var lookupErr *LookupError
	assert.ErrorAs(t, err, &lookupErr)
}

func TestFrameGraph_SetTransformRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	now := time.Now()

	assert.False(t, g.SetTransform("", "map", now, Identity(), "test"))
	assert.False(t, g.SetTransform("lidar", "lidar", now, Identity(), "test"))
	assert.False(t, g.SetTransform("lidar", "", now, Identity(), "test"))

	nanT := Identity()
	nanT.Translation[0] = nan()
	assert.False(t, g.SetTransform("lidar", "map", now, nanT, "test"))
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestFrameGraph_SetTransformAcceptsAndFiresAudit(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	hook := &recordingHook{}
	g.AttachAuditHook(hook)
	now := time.Now()

	ok := g.SetTransform("lidar", "base_link", now, Identity(), "test-authority")
	require.True(t, ok)

	require.Len(t, hook.events, 1)
	assert.Equal(t, "accepted", hook.events[0].Kind)
	assert.Equal(t, "lidar", hook.events[0].Child)
	assert.Equal(t, "base_link", hook.events[0].Parent)
}

func TestFrameGraph_SetTransformRejectsStaleFiresAudit(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(5 * time.Second)
	hook := &recordingHook{}
	g.AttachAuditHook(hook)
	base := time.Unix(2000, 0)

	require.True(t, g.SetTransform("lidar", "base_link", base, Identity(), "a"))
	require.True(t, g.SetTransform("lidar", "base_link", base.Add(10*time.Second), Identity(), "a"))

	ok := g.SetTransform("lidar", "base_link", base.Add(-time.Second), Identity(), "a")
	assert.False(t, ok)

	last := hook.events[len(hook.events)-1]
	assert.Equal(t, "rejected", last.Kind)
	assert.Equal(t, "old data", last.Reason)
}

func TestFrameGraph_SnapshotAndAllFramesAsString(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	now := time.Now()

	g.SetTransform("lidar", "base_link", now, Identity(), "driver")

	snap := g.Snapshot()
	require.Len(t, snap, 2)

	str := g.AllFramesAsString()
	assert.Contains(t, str, "Frame lidar exists with parent base_link.")
	assert.Contains(t, str, "Frame base_link exists with parent /.")
}

func TestFrameGraph_EdgeHistory(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	now := time.Now()
	g.SetTransform("lidar", "base_link", now, Identity(), "driver")
	g.SetTransform("lidar", "base_link", now.Add(time.Second), Identity(), "driver")

	childID, err := g.LookupID("lidar")
	require.NoError(t, err)

	hist, err := g.EdgeHistory(childID)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestFrameGraph_EdgeHistoryUnknownIDIsLookupError(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	_, err := g.EdgeHistory(999)
	var lookupErr *LookupError
	assert.ErrorAs(t, err, &lookupErr)
}

func TestParseAllFramesText_RoundTripsSnapshot(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	now := time.Now()
	g.SetTransform("lidar", "base_link", now, Identity(), "driver")
	g.SetTransform("base_link", "map", now, Identity(), "driver")

	edges, err := ParseAllFramesText(g.AllFramesAsString())
	require.NoError(t, err)
	assert.ElementsMatch(t, []FrameEdge{
		{Child: "lidar", Parent: "base_link"},
		{Child: "base_link", Parent: "map"},
	}, edges)
}

func TestParseAllFramesText_EmptyInputYieldsNoEdges(t *testing.T) {
	t.Parallel()
	edges, err := ParseAllFramesText("")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestParseAllFramesText_MalformedLineIsLookupError(t *testing.T) {
	t.Parallel()
	_, err := ParseAllFramesText("not a frames line")
	var lookupErr *LookupError
	assert.ErrorAs(t, err, &lookupErr)
}

func TestFrameGraph_Clear(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	now := time.Now()
	g.SetTransform("lidar", "base_link", now, Identity(), "driver")

	childID, err := g.LookupID("lidar")
	require.NoError(t, err)
	cache := g.edgeCache(childID)
	require.Equal(t, 1, cache.Len())

	g.Clear()
	assert.Equal(t, 0, cache.Len())
}
