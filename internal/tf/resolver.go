package tf

import (
	"time"
)

// DefaultMaxGraphDepth bounds how many edges a walk will traverse before
// reporting a loop.
const DefaultMaxGraphDepth = 1000

// DefaultTime is the "default time" sentinel: a Lookup call passing this
// value asks the Resolver to use LatestCommonTime instead of an explicit
// timestamp.
var DefaultTime = time.Time{}

// TransformResult is a stamped, composed transform: apply it to a point
// expressed in SourceFrame coordinates to get TargetFrame coordinates.
type TransformResult struct {
	Transform   Transform
	Stamp       time.Time
	TargetFrame string
	SourceFrame string
}

// Resolver is the stateless query engine over a FrameGraph: it walks
// ancestor chains, matches them at a common frame, and composes the
// resulting transform chain.
type Resolver struct {
	graph            *FrameGraph
	maxExtrapolation time.Duration
	maxGraphDepth    int
}

// NewResolver returns a Resolver over graph. maxExtrapolation disallows
// extrapolation when zero (matching spec.md's default). A non-positive
// maxGraphDepth falls back to DefaultMaxGraphDepth.
func NewResolver(graph *FrameGraph, maxExtrapolation time.Duration, maxGraphDepth int) *Resolver {
	if maxGraphDepth <= 0 {
		maxGraphDepth = DefaultMaxGraphDepth
	}
	return &Resolver{graph: graph, maxExtrapolation: maxExtrapolation, maxGraphDepth: maxGraphDepth}
}

// Lookup returns the transform from source to target at time t. Passing
// DefaultTime for t resolves t to LatestCommonTime(target, source)
// first.
func (r *Resolver) Lookup(target, source string, t time.Time) (TransformResult, error) {
	if target == source {
		return TransformResult{
			Transform:   Identity(),
			Stamp:       t,
			TargetFrame: target,
			SourceFrame: source,
		}, nil
	}

	usedDefault := t.Equal(DefaultTime)
	tPrime := t
	if usedDefault {
		var err error
		tPrime, err = r.LatestCommonTime(target, source)
		if err != nil {
			return TransformResult{}, err
		}
	}

	sourceID, err := r.graph.LookupID(source)
	if err != nil {
		return TransformResult{}, err
	}
	targetID, err := r.graph.LookupID(target)
	if err != nil {
		return TransformResult{}, err
	}

	step := func(cache *TimeCache) (Sample, Mode, bool) {
		s, mode, err := cache.Query(tPrime)
		if err != nil {
			return Sample{}, Empty, false
		}
		return s, mode, true
	}

	inv, err := r.graph.walkUp(sourceID, r.maxGraphDepth, step)
	if err != nil {
		return TransformResult{}, err
	}
	fwd, err := r.graph.walkUp(targetID, r.maxGraphDepth, step)
	if err != nil {
		return TransformResult{}, err
	}

	if inv.stopFrame != fwd.stopFrame {
		return TransformResult{}, newConnectivityError("%q and %q have no common frame", source, target)
	}

	minInv, minFwd := popCommonTail(inv.steps, fwd.steps)

	for _, step := range minInv {
		if err := r.checkExtrapolation(step, tPrime); err != nil {
			if usedDefault {
				return TransformResult{}, newConnectivityError("no common time for %q and %q: %v", source, target, err)
			}
			return TransformResult{}, err
		}
	}
	for _, step := range minFwd {
		if err := r.checkExtrapolation(step, tPrime); err != nil {
			if usedDefault {
				return TransformResult{}, newConnectivityError("no common time for %q and %q: %v", source, target, err)
			}
			return TransformResult{}, err
		}
	}

	chain := Identity()
	for _, step := range minInv {
		chain = Compose(step.sample.Transform, chain)
	}
	for k := len(minFwd) - 1; k >= 0; k-- {
		chain = Compose(Inverse(minFwd[k].sample.Transform), chain)
	}

	return TransformResult{
		Transform:   chain,
		Stamp:       tPrime,
		TargetFrame: target,
		SourceFrame: source,
	}, nil
}

// LookupFixed computes the transform from source (at t_source) to target
// (at t_target), bridged through a fixed frame assumed stable across the
// two times.
func (r *Resolver) LookupFixed(target string, tTarget time.Time, source string, tSource time.Time, fixed string) (TransformResult, error) {
	t1, err := r.Lookup(fixed, source, tSource)
	if err != nil {
		return TransformResult{}, err
	}
	t2, err := r.Lookup(target, fixed, tTarget)
	if err != nil {
		return TransformResult{}, err
	}
	return TransformResult{
		Transform:   Compose(t2.Transform, t1.Transform),
		Stamp:       tTarget,
		TargetFrame: target,
		SourceFrame: source,
	}, nil
}

// LatestCommonTime returns the newest timestamp such that every edge on
// the a↔b path has data at or before it. Returns the default-time
// sentinel when a and b are the same frame, or when neither walk
// collects any samples (e.g. sibling leaves with no data).
func (r *Resolver) LatestCommonTime(a, b string) (time.Time, error) {
	if a == b {
		return DefaultTime, nil
	}

	aID, err := r.graph.LookupID(a)
	if err != nil {
		return time.Time{}, err
	}
	bID, err := r.graph.LookupID(b)
	if err != nil {
		return time.Time{}, err
	}

	step := func(cache *TimeCache) (Sample, Mode, bool) {
		s, ok := cache.Latest()
		if !ok {
			return Sample{}, Empty, false
		}
		return s, OneValue, true
	}

	walkA, err := r.graph.walkUp(aID, r.maxGraphDepth, step)
	if err != nil {
		return time.Time{}, err
	}
	walkB, err := r.graph.walkUp(bID, r.maxGraphDepth, step)
	if err != nil {
		return time.Time{}, err
	}

	if len(walkA.steps) == 0 && len(walkB.steps) == 0 {
		return DefaultTime, nil
	}

	if walkA.stopFrame != walkB.stopFrame {
		return time.Time{}, newConnectivityError("%q and %q have no common frame", a, b)
	}

	minA, minB := popCommonTail(walkA.steps, walkB.steps)
	if len(minA) == 0 && len(minB) == 0 {
		return DefaultTime, nil
	}

	var min time.Time
	for _, step := range minA {
		if min.IsZero() || step.sample.Stamp.Before(min) {
			min = step.sample.Stamp
		}
	}
	for _, step := range minB {
		if min.IsZero() || step.sample.Stamp.Before(min) {
			min = step.sample.Stamp
		}
	}
	return min, nil
}

// CanTransform is a non-throwing probe: it reports whether Lookup would
// succeed and, if not, a diagnostic message describing why.
func (r *Resolver) CanTransform(target, source string, t time.Time) (bool, string) {
	_, err := r.Lookup(target, source, t)
	if err != nil {
		return false, err.Error()
	}
	return true, ""
}

// AllFramesAsString delegates to the underlying FrameGraph.
func (r *Resolver) AllFramesAsString() string {
	return r.graph.AllFramesAsString()
}

// popCommonTail pops matching frame ids from the tail of both step
// sequences (they necessarily share an identical suffix once the walks
// converge on a common ancestor) and returns the minimal, non-shared
// prefixes.
func popCommonTail(inv, fwd []walkStep) ([]walkStep, []walkStep) {
	i, j := len(inv)-1, len(fwd)-1
	for i >= 0 && j >= 0 && inv[i].frameID == fwd[j].frameID {
		i--
		j--
	}
	return inv[:i+1], fwd[:j+1]
}

// checkExtrapolation validates step's sample against the resolver's
// configured extrapolation bound for query time t. Interpolated samples
// are always within bounds by construction.
func (r *Resolver) checkExtrapolation(step walkStep, t time.Time) error {
	var amount time.Duration
	switch step.mode {
	case Interpolated:
		return nil
	case OneValue:
		amount = absDuration(t.Sub(step.sample.Stamp))
	case ExtrapolateBack:
		amount = step.sample.Stamp.Sub(t)
	case ExtrapolateForward:
		amount = t.Sub(step.sample.Stamp)
	default:
		return nil
	}
	if amount > r.maxExtrapolation {
		return newExtrapolationError("frame %d: would require extrapolating %s beyond the %s bound", step.frameID, amount, r.maxExtrapolation)
	}
	return nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
