package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/baler/go-codec/internal/artifact"
	"github.com/danielpatrickdp/baler/go-codec/internal/dataset"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region client-struct
// CodecClient wraps the gRPC connection to a codec server.
type CodecClient struct {
	conn   *grpc.ClientConn
	client CodecServiceClient
}

// #endregion client-struct

// #region constructor
// NewCodecClient connects to a codec server. Extra dial options are appended
// after the insecure transport credentials.
func NewCodecClient(addr string, opts ...grpc.DialOption) (*CodecClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{
		conn:   conn,
		client: NewCodecServiceClient(conn),
	}, nil
}

// NewCodecClientWithService creates a CodecClient with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewCodecClientWithService(svc CodecServiceClient) *CodecClient {
	return &CodecClient{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region compress
// Compress sends ds to the server and returns the decoded artifact.
func (c *CodecClient) Compress(ctx context.Context, ds dataset.Dataset) (*artifact.Artifact, error) {
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, ds); err != nil {
		return nil, err
	}
	resp, err := c.client.Compress(ctx, wrapperspb.Bytes(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("compress rpc: %w", err)
	}
	return artifact.Unmarshal(resp.GetValue())
}

// #endregion compress

// #region decompress
// Decompress sends an artifact to the server and returns the reconstruction.
func (c *CodecClient) Decompress(ctx context.Context, a *artifact.Artifact) (dataset.Dataset, error) {
	b, err := artifact.Marshal(a)
	if err != nil {
		return dataset.Dataset{}, err
	}
	resp, err := c.client.Decompress(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("decompress rpc: %w", err)
	}
	return dataset.ReadCSV(bytes.NewReader(resp.GetValue()))
}

// #endregion decompress

// #region info
// Info asks the server which model version it serves.
func (c *CodecClient) Info(ctx context.Context) (Info, error) {
	resp, err := c.client.Info(ctx, &emptypb.Empty{})
	if err != nil {
		return Info{}, fmt.Errorf("info rpc: %w", err)
	}
	var info Info
	if err := json.Unmarshal([]byte(resp.GetValue()), &info); err != nil {
		return Info{}, fmt.Errorf("decode info: %w", err)
	}
	return info, nil
}

// #endregion info
