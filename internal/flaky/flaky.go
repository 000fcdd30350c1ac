// Package flaky provides a gRPC Echo service that rejects a configurable
// number of calls with a chosen status code before it starts answering. It
// exists to exercise retry behaviour in tests and demos.
//
// Like any hand-registered service it uses [grpc.ServiceDesc] directly, so no
// protobuf code generation is required. Request and response are plain Go
// structs; a codec wrapper registered in init JSON-encodes them and delegates
// every other message to the standard proto codec.
package flaky

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcEncoding "google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/proto"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// FullMethod is the full gRPC method name of Echo.
const FullMethod = "/rawr.Flaky/Echo"

// EchoRequest is the input for Echo.
type EchoRequest struct {
	Message string `json:"message"`
}

// EchoResponse is the output of Echo. Attempt is the 1-based number of the
// call the server saw, including rejected ones.
type EchoResponse struct {
	Message string `json:"message"`
	Attempt int64  `json:"attempt"`
}

type flakyMsg interface {
	isFlakyMsg()
}

func (*EchoRequest) isFlakyMsg()  {}
func (*EchoResponse) isFlakyMsg() {}

// Server rejects a fixed number of calls with a status code and echoes
// afterwards. It is safe for concurrent use.
type Server struct {
	code      codes.Code
	remaining atomic.Int64
	calls     atomic.Int64
}

// NewServer returns a Server that fails the first failures calls with code.
func NewServer(failures int, code codes.Code) *Server {
	s := &Server{code: code}
	s.remaining.Store(int64(failures))
	return s
}

// Calls reports how many Echo calls the server has received.
func (s *Server) Calls() int64 { return s.calls.Load() }

// Echo returns the request message once the configured failures are used up.
func (s *Server) Echo(_ context.Context, req *EchoRequest) (*EchoResponse, error) {
	n := s.calls.Add(1)
	if s.remaining.Add(-1) >= 0 {
		return nil, status.Errorf(s.code, "flaky: call %d rejected", n)
	}
	return &EchoResponse{Message: req.Message, Attempt: n}, nil
}

// Echoer is the interface a Flaky service implementation must satisfy.
type Echoer interface {
	Echo(ctx context.Context, req *EchoRequest) (*EchoResponse, error)
}

// ServiceDesc is the grpc.ServiceDesc for the rawr.Flaky service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "rawr.Flaky",
	HandlerType: (*Echoer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Echo",
			Handler:    echoHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rawr/flaky.proto",
}

func echoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(EchoRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Echoer).Echo(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FullMethod,
	}
	handler := func(ctx context.Context, r any) (any, error) {
		return srv.(Echoer).Echo(ctx, r.(*EchoRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// Register registers an Echoer on the given gRPC server.
func Register(s *grpc.Server, e Echoer) {
	s.RegisterService(&ServiceDesc, e)
}

// Echo calls the Echo method over conn.
func Echo(ctx context.Context, conn grpc.ClientConnInterface, msg string, opts ...grpc.CallOption) (*EchoResponse, error) {
	out := new(EchoResponse)
	if err := conn.Invoke(ctx, FullMethod, &EchoRequest{Message: msg}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------- codec wrapper ----------

// jsonOrProto is installed under the "proto" name so Flaky messages travel as
// JSON on a connection that otherwise speaks protobuf. The grpc proto import
// above runs first, so this registration replaces the default codec.
type jsonOrProto struct{}

func init() {
	grpcEncoding.RegisterCodec(jsonOrProto{})
}

func (jsonOrProto) Name() string { return "proto" }

func (jsonOrProto) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case flakyMsg:
		return json.Marshal(m)
	case proto.Message:
		return proto.Marshal(m)
	default:
		return nil, fmt.Errorf("flaky: cannot encode %T", v)
	}
}

func (jsonOrProto) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case flakyMsg:
		return json.Unmarshal(data, m)
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return fmt.Errorf("flaky: cannot decode into %T", v)
	}
}
