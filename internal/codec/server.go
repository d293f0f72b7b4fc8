// Package codec exposes a loaded model version as a gRPC compression
// service and provides the matching client.
package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/danielpatrickdp/baler/go-codec/internal/artifact"
	"github.com/danielpatrickdp/baler/go-codec/internal/dataset"
	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
	"github.com/danielpatrickdp/baler/go-codec/internal/pipeline"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region info
// Info describes the model version a server is bound to.
type Info struct {
	VersionID string   `json:"version_id"`
	ModelName string   `json:"model_name"`
	NFeatures int      `json:"n_features"`
	ZDim      int      `json:"z_dim"`
	Columns   []string `json:"columns"`
	Ratio     float64  `json:"compression_ratio"`
}

// #endregion info

// #region server
// Server serves one loaded model version. The loaded model is only read, so
// concurrent requests need no locking.
type Server struct {
	loaded *pipeline.Loaded
	ratio  float64
	logger *slog.Logger
}

// NewServer binds l to the codec service. ratio is checked against every
// compress request exactly as the compress mode does.
func NewServer(l *pipeline.Loaded, ratio float64, logger *slog.Logger) *Server {
	return &Server{loaded: l, ratio: ratio, logger: logger}
}

// Register attaches the service to g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&ServiceDesc, s)
}

// Compress encodes a CSV payload and returns the artifact bytes.
func (s *Server) Compress(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	ds, err := dataset.ReadCSV(bytes.NewReader(in.GetValue()))
	if err != nil {
		return nil, s.fail("compress", err)
	}
	a, err := s.loaded.Compress(ds, s.ratio)
	if err != nil {
		return nil, s.fail("compress", err)
	}
	b, err := artifact.Marshal(a)
	if err != nil {
		return nil, s.fail("compress", err)
	}
	s.logger.Debug("compress", "rows", a.Rows(), "bytes_in", len(in.GetValue()), "bytes_out", len(b))
	return wrapperspb.Bytes(b), nil
}

// Decompress decodes artifact bytes and returns the reconstruction as CSV.
func (s *Server) Decompress(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	a, err := artifact.Unmarshal(in.GetValue())
	if err != nil {
		return nil, s.fail("decompress", err)
	}
	ds, err := s.loaded.Decompress(a)
	if err != nil {
		return nil, s.fail("decompress", err)
	}
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, ds); err != nil {
		return nil, s.fail("decompress", err)
	}
	s.logger.Debug("decompress", "rows", ds.NumRows(), "bytes_out", buf.Len())
	return wrapperspb.Bytes(buf.Bytes()), nil
}

// Info reports the served model version as JSON.
func (s *Server) Info(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	arch := s.loaded.Version.Arch
	b, err := json.Marshal(Info{
		VersionID: s.loaded.Version.VersionID,
		ModelName: arch.Name,
		NFeatures: arch.NFeatures,
		ZDim:      arch.ZDim,
		Columns:   s.loaded.Params.Names(),
		Ratio:     s.ratio,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "marshal info: %v", err)
	}
	return wrapperspb.String(string(b)), nil
}

func (s *Server) fail(op string, err error) error {
	s.logger.Warn(op+" failed", "err", err)
	return toStatus(err)
}

// #endregion server

// #region status
// toStatus maps taxonomy errors to gRPC codes: bad input is InvalidArgument,
// a model that does not fit the request is FailedPrecondition.
func toStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, faults.ErrData), errors.Is(err, faults.ErrShape):
		code = codes.InvalidArgument
	case errors.Is(err, faults.ErrConfigMismatch), errors.Is(err, faults.ErrArchitectureMismatch):
		code = codes.FailedPrecondition
	}
	return status.Error(code, err.Error())
}

// #endregion status
