// Package rpc exposes the mystery's query and answer operations over gRPC.
// Messages travel as JSON through a registered codec, so no generated
// protobuf code is involved.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/SimonWaldherr/sqlmystery/internal/query"
	"github.com/SimonWaldherr/sqlmystery/internal/store"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "sqlmystery.Mystery"

// gRPC JSON codec
type jsonCodec struct{}

func (jsonCodec) Name() string                  { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal keeps result cells as json.Number so 64-bit ids survive.
func (jsonCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type QueryRequest struct {
	SQL string `json:"sql"`
}

type CheckRequest struct {
	Answer string `json:"answer"`
}

type CheckResponse struct {
	Correct bool `json:"correct"`
}

type SchemaRequest struct{}

type SchemaResponse struct {
	Tables []store.TableInfo `json:"tables"`
}

// Backend is the application side of the service.
type Backend interface {
	Run(ctx context.Context, sql string) query.Outcome
	Check(answer string) bool
	Schema(ctx context.Context) ([]store.TableInfo, error)
}

// MysteryServer is the service implementation registered with grpc.
type MysteryServer interface {
	Query(context.Context, *QueryRequest) (*query.Outcome, error)
	Check(context.Context, *CheckRequest) (*CheckResponse, error)
	Schema(context.Context, *SchemaRequest) (*SchemaResponse, error)
}

type server struct {
	b Backend
}

// Query never fails at the transport level: a rejected statement comes
// back as a Failed outcome.
func (s *server) Query(ctx context.Context, req *QueryRequest) (*query.Outcome, error) {
	out := s.b.Run(ctx, req.SQL)
	return &out, nil
}

func (s *server) Check(_ context.Context, req *CheckRequest) (*CheckResponse, error) {
	return &CheckResponse{Correct: s.b.Check(req.Answer)}, nil
}

func (s *server) Schema(ctx context.Context, _ *SchemaRequest) (*SchemaResponse, error) {
	tables, err := s.b.Schema(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &SchemaResponse{Tables: tables}, nil
}

// NewServer returns a grpc.Server with the Mystery service registered and
// every call logged.
func NewServer(b Backend, log *zap.SugaredLogger, opts ...grpc.ServerOption) *grpc.Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	opts = append(opts, grpc.UnaryInterceptor(logInterceptor(log)))
	gs := grpc.NewServer(opts...)
	Register(gs, b)
	return gs
}

// Register adds the Mystery service to s.
func Register(s *grpc.Server, b Backend) {
	registerMysteryServer(s, &server{b: b})
}

func logInterceptor(log *zap.SugaredLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warnw("grpc call failed", "method", info.FullMethod, "error", err, "duration", time.Since(start))
		} else {
			log.Debugw("grpc call", "method", info.FullMethod, "duration", time.Since(start))
		}
		return resp, err
	}
}

func registerMysteryServer(s *grpc.Server, srv MysteryServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*MysteryServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Query", Handler: _Mystery_Query_Handler},
			{MethodName: "Check", Handler: _Mystery_Check_Handler},
			{MethodName: "Schema", Handler: _Mystery_Schema_Handler},
		},
		Streams: []grpc.StreamDesc{},
	}, srv)
}

func _Mystery_Query_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(QueryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MysteryServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Query"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MysteryServer).Query(ctx, req.(*QueryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Mystery_Check_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MysteryServer).Check(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Check"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MysteryServer).Check(ctx, req.(*CheckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Mystery_Schema_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SchemaRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MysteryServer).Schema(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Schema"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MysteryServer).Schema(ctx, req.(*SchemaRequest))
	}
	return interceptor(ctx, in, info, handler)
}
