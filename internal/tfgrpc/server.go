package tfgrpc

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kinemesh/frametf/internal/tf"
	"github.com/kinemesh/frametf/internal/tfwire"
)

// Server implements TransformServer over a shared *tf.FrameGraph and
// *tf.Resolver, translating tfwire messages to and from core tf calls.
type Server struct {
	Graph    *tf.FrameGraph
	Resolver *tf.Resolver
	Logger   *slog.Logger
}

// NewServer returns a Server backed by graph and resolver.
func NewServer(graph *tf.FrameGraph, resolver *tf.Resolver) *Server {
	return &Server{Graph: graph, Resolver: resolver, Logger: slog.Default()}
}

// SetTransform ingests a wire Sample into the frame graph. Each attempt
// is tagged with a short-lived ingest id, the way the teacher tags each
// track with a generated id for correlating later log lines.
func (s *Server) SetTransform(_ context.Context, in *tfwire.Sample) (*tfwire.Ack, error) {
	ingestID := "ing_" + uuid.NewString()
	transform := sampleToTransform(in)

	ok := s.Graph.SetTransform(in.ChildFrame, in.ParentFrame, in.Stamp.Time(), transform, in.Authority)
	if !ok {
		s.Logger.Warn("rejected transform", "ingest_id", ingestID, "child", in.ChildFrame, "parent", in.ParentFrame, "authority", in.Authority)
		return &tfwire.Ack{Accepted: false, Reason: "rejected: invalid sample or stale data"}, nil
	}
	s.Logger.Debug("accepted transform", "ingest_id", ingestID, "child", in.ChildFrame, "parent", in.ParentFrame)
	return &tfwire.Ack{Accepted: true}, nil
}

// LookupTransform resolves a LookupRequest against the shared Resolver.
func (s *Server) LookupTransform(_ context.Context, in *tfwire.LookupRequest) (*tfwire.LookupReply, error) {
	res, err := s.Resolver.Lookup(in.TargetFrame, in.SourceFrame, in.Time.Time())
	if err != nil {
		return &tfwire.LookupReply{OK: false, Error: err.Error()}, nil
	}
	return &tfwire.LookupReply{OK: true, Transform: transformResultToSample(res)}, nil
}

// CanTransform is the non-throwing probe version of LookupTransform.
func (s *Server) CanTransform(_ context.Context, in *tfwire.LookupRequest) (*tfwire.CanTransformReply, error) {
	ok, reason := s.Resolver.CanTransform(in.TargetFrame, in.SourceFrame, in.Time.Time())
	return &tfwire.CanTransformReply{OK: ok, Reason: reason}, nil
}

// AllFrames renders the registry the way all_frames_as_string does.
func (s *Server) AllFrames(_ context.Context, _ *Empty) (*tfwire.FramesReply, error) {
	return &tfwire.FramesReply{Text: s.Resolver.AllFramesAsString()}, nil
}

func sampleToTransform(in *tfwire.Sample) tf.Transform {
	return SampleToTransform(in)
}

// SampleToTransform converts a wire Sample's pose fields into a
// tf.Transform. Exported so client-side tools (tf-plot) can reuse the
// same conversion the server applies on ingest.
func SampleToTransform(in *tfwire.Sample) tf.Transform {
	t := tf.Identity()
	t.Translation = [3]float64{in.TranslationX, in.TranslationY, in.TranslationZ}
	t.Rotation.Real = in.RotationW
	t.Rotation.Imag = in.RotationX
	t.Rotation.Jmag = in.RotationY
	t.Rotation.Kmag = in.RotationZ
	return t
}

func transformToSample(child, parent string, stamp tfwire.Timestamp, t tf.Transform, authority string) tfwire.Sample {
	return tfwire.Sample{
		ChildFrame:   child,
		ParentFrame:  parent,
		Stamp:        stamp,
		TranslationX: t.Translation[0],
		TranslationY: t.Translation[1],
		TranslationZ: t.Translation[2],
		RotationX:    t.Rotation.Imag,
		RotationY:    t.Rotation.Jmag,
		RotationZ:    t.Rotation.Kmag,
		RotationW:    t.Rotation.Real,
		Authority:    authority,
	}
}

func transformResultToSample(res tf.TransformResult) tfwire.Sample {
	return transformToSample(res.TargetFrame, res.SourceFrame, tfwire.TimestampFromTime(res.Stamp), res.Transform, "")
}
