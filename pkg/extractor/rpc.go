package extractor

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// pluginServiceName is the gRPC service name out-of-process extractor
// plugins register under (§9 redesign note: a single Extractor interface,
// gRPC-shaped, so a plugin can live in another process or another
// language). Built-in adapters (httpbasic, playwright, ...) never go
// through this transport — it exists for genuinely external plugins.
const pluginServiceName = "contactminer.extractor.Plugin"

// pluginServiceDesc describes the one-method Plugin service by hand: the
// request/response messages are google.protobuf.Struct (via structpb),
// which already satisfies proto.Message, so no protoc-generated stubs are
// needed to wire a real gRPC transport.
var pluginServiceDesc = grpc.ServiceDesc{
	ServiceName: pluginServiceName,
	HandlerType: (*pluginServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Mine",
			Handler:    minePluginHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/extractor/rpc.go",
}

// pluginServer is the server-side contract RegisterPlugin adapts an
// Extractor to.
type pluginServer interface {
	Mine(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// extractorPluginServer bridges the gRPC handler to a local Extractor.
type extractorPluginServer struct {
	extractor Extractor
}

func (s *extractorPluginServer) Mine(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	job, err := structToJob(req)
	if err != nil {
		return nil, fmt.Errorf("extractor rpc: decode job: %w", err)
	}
	result, err := s.extractor.Mine(ctx, job)
	if err != nil {
		return nil, err
	}
	resp, err := minerResultToStruct(result)
	if err != nil {
		return nil, fmt.Errorf("extractor rpc: encode result: %w", err)
	}
	return resp, nil
}

func minePluginHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(pluginServer).Mine(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + pluginServiceName + "/Mine"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(pluginServer).Mine(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterPlugin exposes a local Extractor as an out-of-process gRPC
// plugin on server s.
func RegisterPlugin(s *grpc.Server, e Extractor) {
	s.RegisterService(&pluginServiceDesc, &extractorPluginServer{extractor: e})
}

// PluginClient calls a remote extractor plugin over gRPC and satisfies the
// Extractor interface locally, so the router/orchestrator never need to
// know whether a given miner is in-process or remote.
type PluginClient struct {
	conn *grpc.ClientConn
	name string
	caps Capabilities
}

// NewPluginClient wraps an existing connection to a plugin server. name and
// caps describe the remote extractor for the router/plan builder.
func NewPluginClient(conn *grpc.ClientConn, name string, caps Capabilities) *PluginClient {
	return &PluginClient{conn: conn, name: name, caps: caps}
}

func (c *PluginClient) Name() string               { return c.name }
func (c *PluginClient) Capabilities() Capabilities { return c.caps }

// Mine invokes the remote plugin's Mine method.
func (c *PluginClient) Mine(ctx context.Context, job Job) (MinerResult, error) {
	req, err := jobToStruct(job)
	if err != nil {
		return MinerResult{}, fmt.Errorf("extractor rpc: encode job: %w", err)
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+pluginServiceName+"/Mine", req, resp); err != nil {
		return MinerResult{}, fmt.Errorf("extractor rpc: invoke %s: %w", c.name, err)
	}

	return structToMinerResult(resp)
}

// jobToStruct/structToJob/minerResultToStruct/structToMinerResult round-trip
// through JSON into a google.protobuf.Struct, avoiding a hand-maintained
// field-by-field protobuf mapping for what is, on the wire, just structured
// extraction data.

func jobToStruct(job Job) (*structpb.Struct, error) {
	return toStruct(job)
}

func structToJob(s *structpb.Struct) (Job, error) {
	var job Job
	if err := fromStruct(s, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

func minerResultToStruct(result MinerResult) (*structpb.Struct, error) {
	return toStruct(result)
}

func structToMinerResult(s *structpb.Struct) (MinerResult, error) {
	var result MinerResult
	if err := fromStruct(s, &result); err != nil {
		return MinerResult{}, err
	}
	return result, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func fromStruct(s *structpb.Struct, out any) error {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
