package tf

import (
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
)

// rootName is the canonical name for the root sentinel id.
const rootName = "/"

// AuditEvent describes an ingest or lifecycle event the graph observed,
// delivered to an AuditHook outside the graph lock.
type AuditEvent struct {
	Kind      string // "accepted", "rejected", "authority", "clear"
	Child     string
	Parent    string
	Authority string
	Reason    string
	Stamp     time.Time
}

// AuditHook observes graph events. Implementations must not block; the
// recorder buffers internally rather than doing synchronous I/O here.
type AuditHook interface {
	Record(AuditEvent)
}

// FrameInfo is a read-only snapshot of one registered frame.
type FrameInfo struct {
	ID         uint32
	Name       string
	ParentID   uint32
	ParentName string
	Authority  string
}

type edgeEntry struct {
	cache     *TimeCache
	authority string
	parentID  uint32 // most recently observed parent, for introspection
}

// FrameGraph is the registry mapping frame names to dense integer ids and
// each child id to the TimeCache representing its parent edge.
type FrameGraph struct {
	mu         sync.RWMutex
	nameToID   map[string]uint32
	idToName   []string // idToName[0] is the root sentinel name
	edges      []*edgeEntry
	cacheTime  time.Duration
	logger     *slog.Logger
	auditHook  AuditHook
}

// NewFrameGraph returns an empty FrameGraph whose edges retain cacheTime
// of history. A zero cacheTime falls back to DefaultCacheTime.
func NewFrameGraph(cacheTime time.Duration) *FrameGraph {
	if cacheTime <= 0 {
		cacheTime = DefaultCacheTime
	}
	return &FrameGraph{
		nameToID:  map[string]uint32{rootName: RootID},
		idToName:  []string{rootName},
		edges:     []*edgeEntry{nil},
		cacheTime: cacheTime,
		logger:    slog.Default(),
	}
}

// SetLogger overrides the graph's structured logger (default
// slog.Default()).
func (g *FrameGraph) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logger = l
}

// AttachAuditHook installs an optional observer of ingest/lifecycle
// events. Pass nil to detach.
func (g *FrameGraph) AttachAuditHook(hook AuditHook) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.auditHook = hook
}

func canonicalFrameName(name string) string {
	if name == "" {
		return rootName
	}
	return name
}

// Intern looks up or assigns a dense id for name, never failing for a
// non-empty canonical name. The empty string and "/" both canonicalize
// to the root sentinel name but intern does not allocate a new id for
// it beyond RootID.
func (g *FrameGraph) Intern(name string) uint32 {
	name = canonicalFrameName(name)

	g.mu.RLock()
	if id, ok := g.nameToID[name]; ok {
		g.mu.RUnlock()
		return id
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.nameToID[name]; ok {
		return id
	}
	id := uint32(len(g.idToName))
	g.nameToID[name] = id
	g.idToName = append(g.idToName, name)
	g.edges = append(g.edges, &edgeEntry{cache: NewTimeCache(g.cacheTime)})
	return id
}

// LookupID returns the id for name, or a LookupError if name is unknown.
func (g *FrameGraph) LookupID(name string) (uint32, error) {
	name = canonicalFrameName(name)
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.nameToID[name]
	if !ok {
		return 0, newLookupError("frame %q is unknown", name)
	}
	return id, nil
}

// LookupName returns the name for id, or a LookupError if id is not
// allocated.
func (g *FrameGraph) LookupName(id uint32) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if int(id) >= len(g.idToName) {
		return "", newLookupError("frame id %d is not allocated", id)
	}
	return g.idToName[id], nil
}

func hasNaN(t Transform) bool {
	vals := []float64{
		t.Translation[0], t.Translation[1], t.Translation[2],
		t.Rotation.Real, t.Rotation.Imag, t.Rotation.Jmag, t.Rotation.Kmag,
	}
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// SetTransform validates and ingests a stamped parent→child sample,
// attributed to authority. It returns false (never an error) on
// validation failure or stale-data rejection; all rejections are logged
// and, if an audit hook is attached, reported to it.
func (g *FrameGraph) SetTransform(child, parent string, stamp time.Time, transform Transform, authority string) bool {
	child = canonicalFrameName(child)
	parent = canonicalFrameName(parent)

	reject := func(reason string) bool {
		g.logger.Error("reject sample", "reason", reason, "authority", authority, "child", child, "parent", parent)
		g.fireAudit(AuditEvent{Kind: "rejected", Child: child, Parent: parent, Authority: authority, Reason: reason, Stamp: stamp})
		return false
	}

	if child == rootName {
		return reject("child frame is empty or \"/\"")
	}
	if parent == child {
		return reject("child equals parent")
	}
	if parent == rootName {
		return reject("parent frame is empty or \"/\"")
	}
	if hasNaN(transform) {
		return reject("NaN component in sample")
	}

	childID := g.Intern(child)
	parentID := g.Intern(parent)

	g.mu.RLock()
	entry := g.edges[childID]
	g.mu.RUnlock()

	sample := Sample{Stamp: stamp, Transform: transform, ParentID: parentID}
	if !entry.cache.Insert(sample) {
		g.logger.Warn("old data", "authority", authority, "child", child, "parent", parent, "stamp", stamp)
		g.fireAudit(AuditEvent{Kind: "rejected", Child: child, Parent: parent, Authority: authority, Reason: "old data", Stamp: stamp})
		return false
	}

	g.mu.Lock()
	prevAuthority := entry.authority
	entry.authority = authority
	entry.parentID = parentID
	g.mu.Unlock()

	g.fireAudit(AuditEvent{Kind: "accepted", Child: child, Parent: parent, Authority: authority, Stamp: stamp})
	if prevAuthority != "" && prevAuthority != authority {
		g.fireAudit(AuditEvent{Kind: "authority", Child: child, Parent: parent, Authority: authority, Reason: "previous authority " + prevAuthority, Stamp: stamp})
	}
	return true
}

func (g *FrameGraph) fireAudit(e AuditEvent) {
	g.mu.RLock()
	hook := g.auditHook
	g.mu.RUnlock()
	if hook != nil {
		hook.Record(e)
	}
}

// edgeCache returns the TimeCache for childID, or nil if childID is not
// allocated or is the root sentinel.
func (g *FrameGraph) edgeCache(childID uint32) *TimeCache {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if childID == RootID || int(childID) >= len(g.edges) {
		return nil
	}
	return g.edges[childID].cache
}

// Clear empties every TimeCache but preserves id assignments.
func (g *FrameGraph) Clear() {
	g.mu.Lock()
	edges := make([]*TimeCache, 0, len(g.edges))
	for _, e := range g.edges {
		if e != nil {
			edges = append(edges, e.cache)
		}
	}
	g.mu.Unlock()

	for _, c := range edges {
		c.Clear()
	}
	g.fireAudit(AuditEvent{Kind: "clear"})
}

// Snapshot returns a read-only copy of every registered frame's id,
// name, most-recently-observed parent, and authority.
func (g *FrameGraph) Snapshot() []FrameInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]FrameInfo, 0, len(g.idToName)-1)
	for id := 1; id < len(g.idToName); id++ {
		e := g.edges[id]
		info := FrameInfo{
			ID:        uint32(id),
			Name:      g.idToName[id],
			ParentID:  e.parentID,
			Authority: e.authority,
		}
		if int(e.parentID) < len(g.idToName) {
			info.ParentName = g.idToName[e.parentID]
		}
		out = append(out, info)
	}
	return out
}

// EdgeHistory returns every retained sample for childID's edge, oldest
// first, for introspection/plotting tools. It returns a LookupError if
// childID is not allocated.
func (g *FrameGraph) EdgeHistory(childID uint32) ([]Sample, error) {
	g.mu.RLock()
	if int(childID) >= len(g.edges) {
		g.mu.RUnlock()
		return nil, newLookupError("frame id %d is not allocated", childID)
	}
	cache := g.edges[childID].cache
	g.mu.RUnlock()
	return cache.History(), nil
}

// stepFunc produces the sample to use for one edge during a walk. ok is
// false when the edge has no usable data, terminating the walk there.
type stepFunc func(cache *TimeCache) (Sample, Mode, bool)

// walkStep records one edge traversed during a walk: the child frame id
// the edge belongs to, and the sample/mode stepFn produced for it.
type walkStep struct {
	frameID uint32
	sample  Sample
	mode    Mode
}

// walkOutcome is the result of walking from a starting frame up toward
// the root, stopping at the root sentinel, a frame with no data, or
// after maxDepth steps (a loop).
type walkOutcome struct {
	steps     []walkStep
	stopFrame uint32
}

// walkUp walks from start toward the root, calling step once per edge
// traversed. It returns a LookupError if the walk exceeds maxDepth
// (a loop).
func (g *FrameGraph) walkUp(start uint32, maxDepth int, step stepFunc) (walkOutcome, error) {
	var out walkOutcome
	current := start
	depth := 0
	for {
		if current == RootID {
			out.stopFrame = RootID
			return out, nil
		}
		if depth >= maxDepth {
			return out, newLookupError("loop: exceeded max graph depth %d starting from frame %d", maxDepth, start)
		}
		cache := g.edgeCache(current)
		if cache == nil {
			out.stopFrame = current
			return out, nil
		}
		sample, mode, ok := step(cache)
		if !ok {
			out.stopFrame = current
			return out, nil
		}
		out.steps = append(out.steps, walkStep{frameID: current, sample: sample, mode: mode})
		current = sample.ParentID
		depth++
	}
}

// AllFramesAsString renders the registry the way spec.md's
// all_frames_as_string does: one "Frame <name> exists with parent
// <name>." line per registered frame.
func (g *FrameGraph) AllFramesAsString() string {
	var sb strings.Builder
	for _, f := range g.Snapshot() {
		parent := f.ParentName
		if parent == "" {
			parent = rootName
		}
		sb.WriteString("Frame ")
		sb.WriteString(f.Name)
		sb.WriteString(" exists with parent ")
		sb.WriteString(parent)
		sb.WriteString(".\n")
	}
	return sb.String()
}

// FrameEdge is one child→parent relationship parsed out of an
// AllFramesAsString report.
type FrameEdge struct {
	Child  string
	Parent string
}

// ParseAllFramesText parses the output of AllFramesAsString back into a
// list of edges, for tools that only have gRPC/HTTP access to a remote
// registry and want to mirror its topology locally. Lines whose parent is
// the root sentinel "/" describe frames without a parent and yield no
// edge.
func ParseAllFramesText(text string) ([]FrameEdge, error) {
	var edges []FrameEdge
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		const prefix, infix, suffix = "Frame ", " exists with parent ", "."
		if !strings.HasPrefix(line, prefix) || !strings.HasSuffix(line, suffix) {
			return nil, newLookupError("malformed frames line: %q", line)
		}
		rest := strings.TrimSuffix(strings.TrimPrefix(line, prefix), suffix)
		idx := strings.Index(rest, infix)
		if idx < 0 {
			return nil, newLookupError("malformed frames line: %q", line)
		}
		parent := rest[idx+len(infix):]
		if parent == rootName {
			continue
		}
		edges = append(edges, FrameEdge{Child: rest[:idx], Parent: parent})
	}
	return edges, nil
}
