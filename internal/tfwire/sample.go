// Package tfwire is a hand-rolled protobuf-wire codec for the messages
// internal/tfgrpc exchanges and the pcap capture tool decodes. It
// encodes/decodes directly against google.golang.org/protobuf/encoding/
// protowire rather than through generated .pb.go types, so the wire
// format matches sample.proto's field numbers without needing a protoc
// toolchain in this environment.
package tfwire

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Timestamp mirrors timestamppb.Timestamp's field layout (seconds,
// nanos) without depending on the generated type.
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// TimestampFromTime converts a time.Time to a wire Timestamp. The zero
// time.Time encodes to the zero Timestamp, preserving the "default
// time" sentinel across the wire.
func TimestampFromTime(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// Time converts a wire Timestamp back to a time.Time. The zero
// Timestamp converts back to the zero time.Time.
func (ts Timestamp) Time() time.Time {
	if ts.Seconds == 0 && ts.Nanos == 0 {
		return time.Time{}
	}
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

const (
	fieldTimestampSeconds protowire.Number = 1
	fieldTimestampNanos   protowire.Number = 2
)

func appendTimestamp(b []byte, ts Timestamp) []byte {
	if ts.Seconds != 0 {
		b = protowire.AppendTag(b, fieldTimestampSeconds, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(ts.Seconds))
	}
	if ts.Nanos != 0 {
		b = protowire.AppendTag(b, fieldTimestampNanos, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(ts.Nanos))
	}
	return b
}

func consumeTimestamp(b []byte) (Timestamp, error) {
	var ts Timestamp
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ts, protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case fieldTimestampSeconds:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return ts, protowire.ParseError(n)
			}
			ts.Seconds = int64(v)
			b = b[n:]
		case fieldTimestampNanos:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return ts, protowire.ParseError(n)
			}
			ts.Nanos = int32(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return ts, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return ts, nil
}

// Sample is the over-the-wire projection of a tf.Sample: a child
// frame→parent frame observation, its stamp, translation, rotation, and
// the authority that produced it.
type Sample struct {
	ChildFrame   string
	ParentFrame  string
	Stamp        Timestamp
	TranslationX float64
	TranslationY float64
	TranslationZ float64
	RotationX    float64
	RotationY    float64
	RotationZ    float64
	RotationW    float64
	Authority    string
}

const (
	fieldSampleChildFrame   protowire.Number = 1
	fieldSampleParentFrame  protowire.Number = 2
	fieldSampleStamp        protowire.Number = 3
	fieldSampleTranslationX protowire.Number = 4
	fieldSampleTranslationY protowire.Number = 5
	fieldSampleTranslationZ protowire.Number = 6
	fieldSampleRotationX    protowire.Number = 7
	fieldSampleRotationY    protowire.Number = 8
	fieldSampleRotationZ    protowire.Number = 9
	fieldSampleRotationW    protowire.Number = 10
	fieldSampleAuthority    protowire.Number = 11
)

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// Encode serializes s to its wire form.
func (s Sample) Encode() []byte {
	var b []byte
	b = appendString(b, fieldSampleChildFrame, s.ChildFrame)
	b = appendString(b, fieldSampleParentFrame, s.ParentFrame)

	stampBytes := appendTimestamp(nil, s.Stamp)
	if len(stampBytes) > 0 {
		b = protowire.AppendTag(b, fieldSampleStamp, protowire.BytesType)
		b = protowire.AppendBytes(b, stampBytes)
	}

	b = appendDouble(b, fieldSampleTranslationX, s.TranslationX)
	b = appendDouble(b, fieldSampleTranslationY, s.TranslationY)
	b = appendDouble(b, fieldSampleTranslationZ, s.TranslationZ)
	b = appendDouble(b, fieldSampleRotationX, s.RotationX)
	b = appendDouble(b, fieldSampleRotationY, s.RotationY)
	b = appendDouble(b, fieldSampleRotationZ, s.RotationZ)
	b = appendDouble(b, fieldSampleRotationW, s.RotationW)
	b = appendString(b, fieldSampleAuthority, s.Authority)
	return b
}

// DecodeSample parses a wire-encoded Sample.
func DecodeSample(b []byte) (Sample, error) {
	var s Sample
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return s, protowire.ParseError(n)
		}
		b = b[n:]

		switch num {
		case fieldSampleChildFrame:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return s, protowire.ParseError(n)
			}
			s.ChildFrame = v
			b = b[n:]
		case fieldSampleParentFrame:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return s, protowire.ParseError(n)
			}
			s.ParentFrame = v
			b = b[n:]
		case fieldSampleStamp:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return s, protowire.ParseError(n)
			}
			ts, err := consumeTimestamp(v)
			if err != nil {
				return s, fmt.Errorf("tfwire: sample.stamp: %w", err)
			}
			s.Stamp = ts
			b = b[n:]
		case fieldSampleTranslationX, fieldSampleTranslationY, fieldSampleTranslationZ,
			fieldSampleRotationX, fieldSampleRotationY, fieldSampleRotationZ, fieldSampleRotationW:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return s, protowire.ParseError(n)
			}
			f := math.Float64frombits(v)
			switch num {
			case fieldSampleTranslationX:
				s.TranslationX = f
			case fieldSampleTranslationY:
				s.TranslationY = f
			case fieldSampleTranslationZ:
				s.TranslationZ = f
			case fieldSampleRotationX:
				s.RotationX = f
			case fieldSampleRotationY:
				s.RotationY = f
			case fieldSampleRotationZ:
				s.RotationZ = f
			case fieldSampleRotationW:
				s.RotationW = f
			}
			b = b[n:]
		case fieldSampleAuthority:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return s, protowire.ParseError(n)
			}
			s.Authority = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return s, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return s, nil
}

// Ack is the gRPC reply to SetTransform.
type Ack struct {
	Accepted bool
	Reason   string
}

const (
	fieldAckAccepted protowire.Number = 1
	fieldAckReason   protowire.Number = 2
)

// Encode serializes a to its wire form.
func (a Ack) Encode() []byte {
	var b []byte
	if a.Accepted {
		b = protowire.AppendTag(b, fieldAckAccepted, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	b = appendString(b, fieldAckReason, a.Reason)
	return b
}

// DecodeAck parses a wire-encoded Ack.
func DecodeAck(b []byte) (Ack, error) {
	var a Ack
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return a, protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case fieldAckAccepted:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return a, protowire.ParseError(n)
			}
			a.Accepted = v != 0
			b = b[n:]
		case fieldAckReason:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return a, protowire.ParseError(n)
			}
			a.Reason = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return a, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return a, nil
}

// LookupRequest is the gRPC request for LookupTransform/CanTransform.
type LookupRequest struct {
	TargetFrame string
	SourceFrame string
	Time        Timestamp
}

const (
	fieldLookupReqTarget protowire.Number = 1
	fieldLookupReqSource protowire.Number = 2
	fieldLookupReqTime   protowire.Number = 3
)

// Encode serializes r to its wire form.
func (r LookupRequest) Encode() []byte {
	var b []byte
	b = appendString(b, fieldLookupReqTarget, r.TargetFrame)
	b = appendString(b, fieldLookupReqSource, r.SourceFrame)

	timeBytes := appendTimestamp(nil, r.Time)
	if len(timeBytes) > 0 {
		b = protowire.AppendTag(b, fieldLookupReqTime, protowire.BytesType)
		b = protowire.AppendBytes(b, timeBytes)
	}
	return b
}

// DecodeLookupRequest parses a wire-encoded LookupRequest.
func DecodeLookupRequest(b []byte) (LookupRequest, error) {
	var r LookupRequest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return r, protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case fieldLookupReqTarget:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			r.TargetFrame = v
			b = b[n:]
		case fieldLookupReqSource:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			r.SourceFrame = v
			b = b[n:]
		case fieldLookupReqTime:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			ts, err := consumeTimestamp(v)
			if err != nil {
				return r, fmt.Errorf("tfwire: lookup_request.time: %w", err)
			}
			r.Time = ts
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return r, nil
}

// LookupReply is the gRPC reply for LookupTransform.
type LookupReply struct {
	OK        bool
	Error     string
	Transform Sample
}

const (
	fieldLookupReplyOK        protowire.Number = 1
	fieldLookupReplyError     protowire.Number = 2
	fieldLookupReplyTransform protowire.Number = 3
)

// Encode serializes r to its wire form.
func (r LookupReply) Encode() []byte {
	var b []byte
	if r.OK {
		b = protowire.AppendTag(b, fieldLookupReplyOK, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	b = appendString(b, fieldLookupReplyError, r.Error)

	sampleBytes := r.Transform.Encode()
	if len(sampleBytes) > 0 {
		b = protowire.AppendTag(b, fieldLookupReplyTransform, protowire.BytesType)
		b = protowire.AppendBytes(b, sampleBytes)
	}
	return b
}

// DecodeLookupReply parses a wire-encoded LookupReply.
func DecodeLookupReply(b []byte) (LookupReply, error) {
	var r LookupReply
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return r, protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case fieldLookupReplyOK:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			r.OK = v != 0
			b = b[n:]
		case fieldLookupReplyError:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			r.Error = v
			b = b[n:]
		case fieldLookupReplyTransform:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			sample, err := DecodeSample(v)
			if err != nil {
				return r, fmt.Errorf("tfwire: lookup_reply.transform: %w", err)
			}
			r.Transform = sample
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return r, nil
}

// CanTransformReply is the gRPC reply for CanTransform.
type CanTransformReply struct {
	OK     bool
	Reason string
}

const (
	fieldCanTransformOK     protowire.Number = 1
	fieldCanTransformReason protowire.Number = 2
)

// Encode serializes r to its wire form.
func (r CanTransformReply) Encode() []byte {
	var b []byte
	if r.OK {
		b = protowire.AppendTag(b, fieldCanTransformOK, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	b = appendString(b, fieldCanTransformReason, r.Reason)
	return b
}

// DecodeCanTransformReply parses a wire-encoded CanTransformReply.
func DecodeCanTransformReply(b []byte) (CanTransformReply, error) {
	var r CanTransformReply
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return r, protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case fieldCanTransformOK:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			r.OK = v != 0
			b = b[n:]
		case fieldCanTransformReason:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			r.Reason = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return r, nil
}

// FramesReply wraps all_frames_as_string's text for the gRPC AllFrames
// call.
type FramesReply struct {
	Text string
}

const fieldFramesReplyText protowire.Number = 1

// Encode serializes r to its wire form.
func (r FramesReply) Encode() []byte {
	return appendString(nil, fieldFramesReplyText, r.Text)
}

// DecodeFramesReply parses a wire-encoded FramesReply.
func DecodeFramesReply(b []byte) (FramesReply, error) {
	var r FramesReply
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return r, protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case fieldFramesReplyText:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			r.Text = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return r, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return r, nil
}
