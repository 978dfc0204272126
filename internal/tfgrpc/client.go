package tfgrpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/kinemesh/frametf/internal/tfwire"
)

// Client is a thin wrapper around a *grpc.ClientConn dialed with the
// tfwire codec forced via grpc.WithDefaultCallOptions(grpc.ForceCodec(...)).
type Client struct {
	conn *grpc.ClientConn
}

// NewClient wraps an already-dialed connection. Callers must have dialed
// with grpc.WithDefaultCallOptions(grpc.ForceCodec(tfgrpc.Codec())).
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// SetTransform calls TransformService.SetTransform.
func (c *Client) SetTransform(ctx context.Context, in *tfwire.Sample) (*tfwire.Ack, error) {
	out := new(tfwire.Ack)
	if err := c.conn.Invoke(ctx, "/tfgrpc.TransformService/SetTransform", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// LookupTransform calls TransformService.LookupTransform.
func (c *Client) LookupTransform(ctx context.Context, in *tfwire.LookupRequest) (*tfwire.LookupReply, error) {
	out := new(tfwire.LookupReply)
	if err := c.conn.Invoke(ctx, "/tfgrpc.TransformService/LookupTransform", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CanTransform calls TransformService.CanTransform.
func (c *Client) CanTransform(ctx context.Context, in *tfwire.LookupRequest) (*tfwire.CanTransformReply, error) {
	out := new(tfwire.CanTransformReply)
	if err := c.conn.Invoke(ctx, "/tfgrpc.TransformService/CanTransform", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AllFrames calls TransformService.AllFrames.
func (c *Client) AllFrames(ctx context.Context) (*tfwire.FramesReply, error) {
	out := new(tfwire.FramesReply)
	if err := c.conn.Invoke(ctx, "/tfgrpc.TransformService/AllFrames", &Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}
