// Package tfhttp exposes registry introspection and lookup over plain
// HTTP, alongside tailsql's debug surface when a recorder is attached.
package tfhttp

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kinemesh/frametf/internal/tf"
)

// Server serves the introspection/lookup routes over a shared
// *tf.FrameGraph and *tf.Resolver.
type Server struct {
	graph    *tf.FrameGraph
	resolver *tf.Resolver
}

// NewServer returns a Server backed by graph and resolver.
func NewServer(graph *tf.FrameGraph, resolver *tf.Resolver) *Server {
	return &Server{graph: graph, resolver: resolver}
}

// ServeMux builds the *http.ServeMux tfd mounts alongside tailsql's
// /debug/tailsql/ route.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/frames", s.framesHandler)
	mux.HandleFunc("/lookup", s.lookupHandler)
	mux.HandleFunc("/can_transform", s.canTransformHandler)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("frametf transform registry\n"))
}

func (s *Server) framesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Write([]byte(s.resolver.AllFramesAsString()))
}

func (s *Server) lookupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	target := r.URL.Query().Get("target")
	source := r.URL.Query().Get("source")
	if target == "" || source == "" {
		http.Error(w, "target and source are required", http.StatusBadRequest)
		return
	}

	t, err := parseQueryTime(r.URL.Query().Get("t"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid t: %v", err), http.StatusBadRequest)
		return
	}

	res, err := s.resolver.Lookup(target, source, t)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	fmt.Fprintf(w, "target=%s source=%s stamp=%s translation=[%f %f %f] rotation=[%f %f %f %f]\n",
		res.TargetFrame, res.SourceFrame, res.Stamp.Format(time.RFC3339Nano),
		res.Transform.Translation[0], res.Transform.Translation[1], res.Transform.Translation[2],
		res.Transform.Rotation.Imag, res.Transform.Rotation.Jmag, res.Transform.Rotation.Kmag, res.Transform.Rotation.Real)
}

func (s *Server) canTransformHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	target := r.URL.Query().Get("target")
	source := r.URL.Query().Get("source")
	if target == "" || source == "" {
		http.Error(w, "target and source are required", http.StatusBadRequest)
		return
	}

	t, err := parseQueryTime(r.URL.Query().Get("t"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid t: %v", err), http.StatusBadRequest)
		return
	}

	ok, reason := s.resolver.CanTransform(target, source, t)
	fmt.Fprintf(w, "ok=%t reason=%q\n", ok, reason)
}

// parseQueryTime parses an optional RFC3339 "t" query parameter,
// returning tf.DefaultTime when empty so the caller gets
// latest-common-time semantics.
func parseQueryTime(raw string) (time.Time, error) {
	if raw == "" {
		return tf.DefaultTime, nil
	}
	if nanos, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(0, nanos).UTC(), nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
