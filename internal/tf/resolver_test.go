package tf

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// approxFloat compares float64s within a fixed tolerance, for cmp.Diff
// calls against structs that carry interpolated/composed transforms.
var approxFloat = cmp.Comparer(func(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
})

func translation(x, y, z float64) Transform {
	t := Identity()
	t.Translation = [3]float64{x, y, z}
	return t
}

func TestResolver_SameFrameIsIdentity(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 0, 0)

	res, err := r.Lookup("lidar", "lidar", time.Now())
	require.NoError(t, err)
	assert.Equal(t, Identity(), res.Transform)

	// Same-frame lookup succeeds even for frames never registered.
	res, err = r.Lookup("ghost", "ghost", time.Now())
	require.NoError(t, err)
	assert.Equal(t, Identity(), res.Transform)
}

func TestResolver_UnknownFrameIsLookupError(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 0, 0)

	_, err := r.Lookup("nope", "alsonope", time.Now())
	require.Error(t, err)
	var lookupErr *LookupError
	assert.ErrorAs(t, err, &lookupErr)
}

func TestResolver_DirectParentChild(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 0, 0)
	now := time.Unix(1000, 0)

	g.SetTransform("lidar", "base_link", now, translation(1, 0, 0), "driver")

	res, err := r.Lookup("base_link", "lidar", now)
	require.NoError(t, err)
	assert.InDelta(t, 1, res.Transform.Translation[0], 1e-9)
}

func TestResolver_CommonAncestorComposition(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 0, 0)
	now := time.Unix(1000, 0)

	// base_link -> lidar (+1, 0, 0)
	// base_link -> camera (+0, 1, 0)
	g.SetTransform("lidar", "base_link", now, translation(1, 0, 0), "driver")
	g.SetTransform("camera", "base_link", now, translation(0, 1, 0), "driver")

	res, err := r.Lookup("camera", "lidar", now)
	require.NoError(t, err)
	// camera_from_lidar = inverse(camera_from_base) * base_from_lidar... translation(-0,-1,0) composed with (1,0,0)
	assert.InDelta(t, 1, res.Transform.Translation[0], 1e-9)
	assert.InDelta(t, -1, res.Transform.Translation[1], 1e-9)
}

func TestResolver_NoCommonFrameIsConnectivityError(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 0, 0)
	now := time.Unix(1000, 0)

	g.SetTransform("lidar", "base_link", now, Identity(), "driver")
	g.SetTransform("gripper", "arm_base", now, Identity(), "driver")

	_, err := r.Lookup("gripper", "lidar", now)
	require.Error(t, err)
	var connErr *ConnectivityError
	assert.ErrorAs(t, err, &connErr)
}

func TestResolver_ExtrapolationBeyondBoundFails(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 0, 0) // zero tolerance
	base := time.Unix(10, 0)

	g.SetTransform("lidar", "base_link", base, Identity(), "driver")

	_, err := r.Lookup("base_link", "lidar", base)
	require.NoError(t, err)

	_, err = r.Lookup("base_link", "lidar", base.Add(time.Second))
	require.Error(t, err)
	var extrapErr *ExtrapolationError
	assert.ErrorAs(t, err, &extrapErr)
}

func TestResolver_ExtrapolationWithinBoundSucceeds(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 2*time.Second, 0)
	base := time.Unix(10, 0)

	g.SetTransform("lidar", "base_link", base, Identity(), "driver")

	_, err := r.Lookup("base_link", "lidar", base.Add(time.Second))
	assert.NoError(t, err)
}

func TestResolver_LoopIsLookupError(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 0, 3)
	now := time.Unix(1000, 0)

	g.SetTransform("a", "b", now, Identity(), "driver")
	g.SetTransform("b", "a", now, Identity(), "driver")

	_, err := r.Lookup("a", "b", now)
	require.Error(t, err)
	var lookupErr *LookupError
	assert.ErrorAs(t, err, &lookupErr)
}

func TestResolver_DefaultTimeUsesLatestCommonTime(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 0, 0)
	base := time.Unix(1000, 0)

	g.SetTransform("lidar", "base_link", base, translation(1, 0, 0), "driver")
	g.SetTransform("lidar", "base_link", base.Add(time.Second), translation(2, 0, 0), "driver")

	res, err := r.Lookup("base_link", "lidar", DefaultTime)
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Second), res.Stamp)
}

func TestResolver_DefaultTimeWithNoOverlapIsConnectivityError(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 0, 0)

	// Two frames that are interned but have no parent edge data: the walks
	// never collect a sample, so stopFrame differs and this is reported as
	// a connectivity failure, not an extrapolation failure.
	g.Intern("orphan_a")
	g.Intern("orphan_b")

	_, err := r.Lookup("orphan_b", "orphan_a", DefaultTime)
	require.Error(t, err)
	var connErr *ConnectivityError
	assert.ErrorAs(t, err, &connErr)
}

func TestResolver_CanTransformNeverPanics(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 0, 0)

	ok, reason := r.CanTransform("nope", "alsonope", time.Now())
	assert.False(t, ok)
	assert.NotEmpty(t, reason)

	ok, reason = r.CanTransform("x", "x", time.Now())
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestResolver_InverseRoundTrips(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 0, 0)
	now := time.Unix(1000, 0)

	g.SetTransform("lidar", "base_link", now, translation(3, 4, 5), "driver")

	fwd, err := r.Lookup("lidar", "base_link", now)
	require.NoError(t, err)
	back, err := r.Lookup("base_link", "lidar", now)
	require.NoError(t, err)

	composed := Compose(fwd.Transform, back.Transform)
	assert.InDelta(t, 0, composed.Translation[0], 1e-9)
	assert.InDelta(t, 0, composed.Translation[1], 1e-9)
	assert.InDelta(t, 0, composed.Translation[2], 1e-9)
	assert.InDelta(t, 1, math.Abs(composed.Rotation.Real), 1e-9)
}

func TestResolver_LookupFixedBridgesTwoTimes(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, time.Minute, 0)
	t0 := time.Unix(1000, 0)
	t1 := t0.Add(time.Second)

	g.SetTransform("odom", "map", t0, translation(0, 0, 0), "driver")
	g.SetTransform("odom", "map", t1, translation(5, 0, 0), "driver")

	// map@t0 -> odom is identity; odom -> map@t1 shifts by +5 in x.
	res, err := r.LookupFixed("map", t1, "map", t0, "odom")
	require.NoError(t, err)
	assert.InDelta(t, 5, res.Transform.Translation[0], 1e-9)
}

func TestResolver_InterpolatedLookupMatchesExpectedTransform(t *testing.T) {
	t.Parallel()
	g := NewFrameGraph(time.Minute)
	r := NewResolver(g, 0, 0)
	t0 := time.Unix(1000, 0)
	t1 := t0.Add(2 * time.Second)

	g.SetTransform("lidar", "base_link", t0, translation(0, 0, 0), "driver")
	g.SetTransform("lidar", "base_link", t1, translation(10, 0, 0), "driver")

	res, err := r.Lookup("base_link", "lidar", t0.Add(time.Second))
	require.NoError(t, err)

	want := translation(5, 0, 0)
	if diff := cmp.Diff(want, res.Transform, approxFloat); diff != "" {
		t.Errorf("interpolated transform mismatch (-want +got):\n%s", diff)
	}
}
