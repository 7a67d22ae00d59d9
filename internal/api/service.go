package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "mirador.aiops.v1.AnomalyScoring"

const (
	scoreMetricsMethod = "/" + ServiceName + "/ScoreMetrics"
	analyzeLogsMethod  = "/" + ServiceName + "/AnalyzeLogs"
	healthCheckMethod  = "/" + ServiceName + "/HealthCheck"
)

// AnomalyScoringServer is the server API for the AnomalyScoring service.
// Requests and responses are JSON documents carried as google.protobuf.Struct.
type AnomalyScoringServer interface {
	ScoreMetrics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AnalyzeLogs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HealthCheck(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterAnomalyScoringServer registers srv on s.
func RegisterAnomalyScoringServer(s grpc.ServiceRegistrar, srv AnomalyScoringServer) {
	s.RegisterService(&AnomalyScoringServiceDesc, srv)
}

// AnomalyScoringServiceDesc describes the AnomalyScoring service.
var AnomalyScoringServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnomalyScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ScoreMetrics", Handler: scoreMetricsHandler},
		{MethodName: "AnalyzeLogs", Handler: analyzeLogsHandler},
		{MethodName: "HealthCheck", Handler: healthCheckHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mirador/aiops/v1/aiops.proto",
}

func scoreMetricsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnomalyScoringServer).ScoreMetrics(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: scoreMetricsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnomalyScoringServer).ScoreMetrics(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func analyzeLogsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnomalyScoringServer).AnalyzeLogs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: analyzeLogsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnomalyScoringServer).AnalyzeLogs(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func healthCheckHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnomalyScoringServer).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: healthCheckMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnomalyScoringServer).HealthCheck(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// AnomalyScoringClient is the client API for the AnomalyScoring service.
type AnomalyScoringClient struct {
	cc grpc.ClientConnInterface
}

// NewAnomalyScoringClient wraps a client connection.
func NewAnomalyScoringClient(cc grpc.ClientConnInterface) *AnomalyScoringClient {
	return &AnomalyScoringClient{cc: cc}
}

// ScoreMetrics invokes the ScoreMetrics RPC.
func (c *AnomalyScoringClient) ScoreMetrics(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, scoreMetricsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// AnalyzeLogs invokes the AnalyzeLogs RPC.
func (c *AnomalyScoringClient) AnalyzeLogs(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, analyzeLogsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// HealthCheck invokes the HealthCheck RPC.
func (c *AnomalyScoringClient) HealthCheck(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, healthCheckMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
