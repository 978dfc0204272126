package tfgrpc

import (
	"fmt"

	"github.com/kinemesh/frametf/internal/tfwire"
)

// encoder is implemented by every tfwire message type tfgrpc exchanges.
type encoder interface {
	Encode() []byte
}

// codec is a grpc.Codec/encoding.CodecV2-shaped adapter over tfwire's
// hand-rolled protobuf-wire functions. It deliberately bypasses
// proto.Message and generated descriptors: see tfwire's package doc for
// why.
type codec struct{}

// Name satisfies the grpc codec interface. Servers and clients must
// agree on it via grpc.ForceServerCodec/grpc.ForceCodec.
func (codec) Name() string { return "tfwire" }

// Marshal satisfies the grpc codec interface.
func (codec) Marshal(v any) ([]byte, error) {
	enc, ok := v.(encoder)
	if !ok {
		return nil, fmt.Errorf("tfgrpc: %T does not implement Encode() []byte", v)
	}
	return enc.Encode(), nil
}

// Unmarshal satisfies the grpc codec interface.
func (codec) Unmarshal(data []byte, v any) error {
	switch p := v.(type) {
	case *tfwire.Sample:
		s, err := tfwire.DecodeSample(data)
		if err != nil {
			return err
		}
		*p = s
	case *tfwire.Ack:
		a, err := tfwire.DecodeAck(data)
		if err != nil {
			return err
		}
		*p = a
	case *tfwire.LookupRequest:
		r, err := tfwire.DecodeLookupRequest(data)
		if err != nil {
			return err
		}
		*p = r
	case *tfwire.LookupReply:
		r, err := tfwire.DecodeLookupReply(data)
		if err != nil {
			return err
		}
		*p = r
	case *tfwire.CanTransformReply:
		r, err := tfwire.DecodeCanTransformReply(data)
		if err != nil {
			return err
		}
		*p = r
	case *tfwire.FramesReply:
		r, err := tfwire.DecodeFramesReply(data)
		if err != nil {
			return err
		}
		*p = r
	case *Empty:
		// Empty carries no fields; nothing to decode.
	default:
		return fmt.Errorf("tfgrpc: unmarshal: unsupported type %T", v)
	}
	return nil
}

// Empty is the request type for AllFrames, which takes no arguments.
type Empty struct{}

// Encode satisfies encoder; Empty always encodes to zero bytes.
func (Empty) Encode() []byte { return nil }
