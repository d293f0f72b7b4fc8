package codec

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/baler/go-codec/internal/artifact"
	"github.com/danielpatrickdp/baler/go-codec/internal/config"
	"github.com/danielpatrickdp/baler/go-codec/internal/dataset"
	"github.com/danielpatrickdp/baler/go-codec/internal/logging"
	"github.com/danielpatrickdp/baler/go-codec/internal/pipeline"
	"github.com/danielpatrickdp/baler/go-codec/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region fixtures
func sampleData(rows int) dataset.Dataset {
	rng := rand.New(rand.NewSource(3))
	ds := dataset.Dataset{Names: []string{"a", "b", "c", "d"}, Columns: make([][]float64, 4)}
	for i := 0; i < rows; i++ {
		u := rng.Float64()
		ds.Columns[0] = append(ds.Columns[0], u)
		ds.Columns[1] = append(ds.Columns[1], 2*u+1)
		ds.Columns[2] = append(ds.Columns[2], 5-u)
		ds.Columns[3] = append(ds.Columns[3], rng.Float64())
	}
	return ds
}

// loadedModel derives a small linear model into a temporary store.
func loadedModel(t *testing.T) *pipeline.Loaded {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "models.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.ModelName = "linear_AE"
	cfg.CompressionRatio = 2
	cfg.Epochs = 3
	cfg.BatchSize = 16
	rc, err := config.NewRunContext("derive", cfg, logging.Discard(), nil)
	if err != nil {
		t.Fatalf("NewRunContext: %v", err)
	}
	if _, err := pipeline.DeriveDataset(context.Background(), sampleData(100), cfg, st, rc); err != nil {
		t.Fatalf("DeriveDataset: %v", err)
	}
	l, err := pipeline.Load(st, "linear_AE", "", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return l
}

// dialServer starts srv on an in-memory listener and returns a connected client.
func dialServer(t *testing.T, srv *Server) *CodecClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	g := grpc.NewServer()
	srv.Register(g)
	go g.Serve(lis)
	t.Cleanup(g.Stop)

	client, err := NewCodecClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	if err != nil {
		t.Fatalf("NewCodecClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// #endregion fixtures

// #region mock
type mockCodecService struct {
	CodecServiceClient

	compressResp *wrapperspb.BytesValue
	compressErr  error

	infoResp *wrapperspb.StringValue
	infoErr  error
}

func (m *mockCodecService) Compress(_ context.Context, _ *wrapperspb.BytesValue, _ ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return m.compressResp, m.compressErr
}

func (m *mockCodecService) Info(_ context.Context, _ *emptypb.Empty, _ ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return m.infoResp, m.infoErr
}

// #endregion mock

// #region constructor-tests
func TestNewCodecClientLazyDial(t *testing.T) {
	client, err := NewCodecClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCloseWithoutConn(t *testing.T) {
	client := NewCodecClientWithService(&mockCodecService{})
	if err := client.Close(); err != nil {
		t.Fatalf("Close on injected client: %v", err)
	}
}

// #endregion constructor-tests

// #region mock-tests
func TestCompressWrapsRPCError(t *testing.T) {
	client := NewCodecClientWithService(&mockCodecService{compressErr: status.Error(codes.Unavailable, "down")})
	_, err := client.Compress(context.Background(), sampleData(4))
	if err == nil {
		t.Fatal("expected error")
	}
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("code = %v, want Unavailable", status.Code(err))
	}
}

func TestCompressRejectsCorruptResponse(t *testing.T) {
	client := NewCodecClientWithService(&mockCodecService{compressResp: wrapperspb.Bytes([]byte{0xff, 0xff, 0xff})})
	if _, err := client.Compress(context.Background(), sampleData(4)); err == nil {
		t.Fatal("expected decode error for corrupt artifact")
	}
}

func TestInfoBadJSON(t *testing.T) {
	client := NewCodecClientWithService(&mockCodecService{infoResp: wrapperspb.String("{not json")})
	if _, err := client.Info(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

// #endregion mock-tests

// #region server-tests
func TestRoundTripOverGRPC(t *testing.T) {
	l := loadedModel(t)
	client := dialServer(t, NewServer(l, 2, logging.Discard()))
	ctx := context.Background()

	ds := sampleData(40)
	a, err := client.Compress(ctx, ds)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if a.Rows() != 40 || a.ZDim != 2 || a.ModelVersion != l.Version.VersionID {
		t.Fatalf("artifact = %d rows z=%d version=%s", a.Rows(), a.ZDim, a.ModelVersion)
	}

	out, err := client.Decompress(ctx, a)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if out.NumRows() != 40 || out.NumCols() != 4 {
		t.Fatalf("decompressed dims = %dx%d, want 40x4", out.NumRows(), out.NumCols())
	}
	for i, n := range ds.Names {
		if out.Names[i] != n {
			t.Fatalf("column %d = %q, want %q", i, out.Names[i], n)
		}
	}

	info, err := client.Info(ctx)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.VersionID != l.Version.VersionID || info.NFeatures != 4 || info.ZDim != 2 || len(info.Columns) != 4 {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestServerErrorCodes(t *testing.T) {
	l := loadedModel(t)
	ctx := context.Background()

	// the stored model was derived with ratio 2
	client := dialServer(t, NewServer(l, 4, logging.Discard()))
	_, err := client.Compress(ctx, sampleData(10))
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("ratio change: code = %v (%v), want FailedPrecondition", status.Code(err), err)
	}

	client = dialServer(t, NewServer(l, 2, logging.Discard()))
	narrow := sampleData(10)
	narrow.Names, narrow.Columns = narrow.Names[:3], narrow.Columns[:3]
	_, err = client.Compress(ctx, narrow)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("width change: code = %v (%v), want FailedPrecondition", status.Code(err), err)
	}

	a, err := client.Compress(ctx, sampleData(10))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	a.ModelVersion = "some-other-version"
	_, err = client.Decompress(ctx, a)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("foreign artifact: code = %v (%v), want FailedPrecondition", status.Code(err), err)
	}
}

func TestServerRejectsMalformedPayloads(t *testing.T) {
	srv := NewServer(loadedModel(t), 2, logging.Discard())
	ctx := context.Background()

	_, err := srv.Compress(ctx, wrapperspb.Bytes([]byte("a,b,c,d\n1,2,x,4\n")))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("non-numeric csv: code = %v, want InvalidArgument", status.Code(err))
	}
	_, err = srv.Decompress(ctx, wrapperspb.Bytes([]byte{0x0a, 0xff}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("corrupt artifact: code = %v, want InvalidArgument", status.Code(err))
	}

	// format 1, z_dim 1, rows 1<<61, empty latent
	huge := protowire.AppendTag(nil, 1, protowire.VarintType)
	huge = protowire.AppendVarint(huge, 1)
	huge = protowire.AppendTag(huge, 5, protowire.VarintType)
	huge = protowire.AppendVarint(huge, 1)
	huge = protowire.AppendTag(huge, 6, protowire.VarintType)
	huge = protowire.AppendVarint(huge, 1<<61)
	huge = protowire.AppendTag(huge, 8, protowire.BytesType)
	huge = protowire.AppendBytes(huge, nil)
	_, err = srv.Decompress(ctx, wrapperspb.Bytes(huge))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("oversized row count: code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestToStatusDefaultsToInternal(t *testing.T) {
	if got := status.Code(toStatus(errors.New("boom"))); got != codes.Internal {
		t.Fatalf("code = %v, want Internal", got)
	}
	if got := status.Code(toStatus(artifactErr())); got != codes.InvalidArgument {
		t.Fatalf("code = %v, want InvalidArgument", got)
	}
}

func artifactErr() error {
	_, err := artifact.Unmarshal([]byte{0x0a, 0xff})
	return err
}

// #endregion server-tests
