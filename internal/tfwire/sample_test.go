package tfwire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleRoundTrips(t *testing.T) {
	t.Parallel()

	original := Sample{
		ChildFrame:   "lidar",
		ParentFrame:  "base_link",
		Stamp:        TimestampFromTime(time.Unix(1700000000, 123000000)),
		TranslationX: 1.5,
		TranslationY: -2.25,
		TranslationZ: 0,
		RotationX:    0,
		RotationY:    0,
		RotationZ:    0,
		RotationW:    1,
		Authority:    "driver",
	}

	encoded := original.Encode()
	decoded, err := DecodeSample(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestSampleRoundTripsZeroTime(t *testing.T) {
	t.Parallel()

	original := Sample{ChildFrame: "a", ParentFrame: "b", RotationW: 1}
	decoded, err := DecodeSample(original.Encode())
	require.NoError(t, err)
	assert.True(t, decoded.Stamp.Time().IsZero())
}

func TestAckRoundTrips(t *testing.T) {
	t.Parallel()

	for _, a := range []Ack{
		{Accepted: true},
		{Accepted: false, Reason: "old data"},
	} {
		decoded, err := DecodeAck(a.Encode())
		require.NoError(t, err)
		assert.Equal(t, a, decoded)
	}
}

func TestLookupRequestRoundTrips(t *testing.T) {
	t.Parallel()

	req := LookupRequest{
		TargetFrame: "map",
		SourceFrame: "lidar",
		Time:        TimestampFromTime(time.Unix(42, 7)),
	}
	decoded, err := DecodeLookupRequest(req.Encode())
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
}

func TestLookupReplyRoundTrips(t *testing.T) {
	t.Parallel()

	reply := LookupReply{
		OK: true,
		Transform: Sample{
			ChildFrame:  "lidar",
			ParentFrame: "map",
			RotationW:   1,
		},
	}
	decoded, err := DecodeLookupReply(reply.Encode())
	require.NoError(t, err)
	assert.Equal(t, reply, decoded)
}

func TestCanTransformReplyRoundTrips(t *testing.T) {
	t.Parallel()

	reply := CanTransformReply{OK: false, Reason: "tf: lookup: frame \"x\" is unknown"}
	decoded, err := DecodeCanTransformReply(reply.Encode())
	require.NoError(t, err)
	assert.Equal(t, reply, decoded)
}

func TestFramesReplyRoundTrips(t *testing.T) {
	t.Parallel()

	reply := FramesReply{Text: "Frame lidar exists with parent base_link.\n"}
	decoded, err := DecodeFramesReply(reply.Encode())
	require.NoError(t, err)
	assert.Equal(t, reply, decoded)
}

func TestTimestampFromTimeRoundTrips(t *testing.T) {
	t.Parallel()

	now := time.Unix(1712345678, 999000000)
	ts := TimestampFromTime(now)
	assert.True(t, now.Equal(ts.Time()))
}
