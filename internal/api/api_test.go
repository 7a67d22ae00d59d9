package api

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-aiops/internal/config"
	"github.com/miradorstack/mirador-aiops/internal/models"
)

func TestFromProtoMetricBatchRequest(t *testing.T) {
	req, err := structpb.NewStruct(map[string]any{
		"metrics": []any{
			map[string]any{"namespace": "AWS/Lambda", "metric_name": "Errors", "statistic": "Sum"},
		},
	})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	out, err := FromProtoMetricBatchRequest(req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(out.Metrics) != 1 || out.Metrics[0].Statistic != models.StatisticSum {
		t.Fatalf("unexpected request %+v", out)
	}

	empty, err := FromProtoMetricBatchRequest(nil)
	if err != nil || len(empty.Metrics) != 0 {
		t.Fatalf("expected empty request for nil payload, got %+v, %v", empty, err)
	}
}

func TestFromProtoLogBatchRequestRejectsNegativeHours(t *testing.T) {
	req, _ := structpb.NewStruct(map[string]any{"hours": -3})
	if _, err := FromProtoLogBatchRequest(req); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestToProtoStruct(t *testing.T) {
	report := models.LogBatchReport{
		Results: []models.LogAnalysis{{
			LogGroup:   "/aws/lambda/checkout",
			Status:     models.LogStatusOK,
			ErrorCount: 3,
			AIInsights: &models.Insight{Body: []byte(`{"root_cause":"db"}`)},
		}},
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	out, err := ToProtoStruct(report)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	item := out.GetFields()["results"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	if item["error_count"].GetNumberValue() != 3 {
		t.Fatalf("unexpected error_count %v", item["error_count"])
	}
	if item["ai_insights"].GetStructValue().GetFields()["root_cause"].GetStringValue() != "db" {
		t.Fatalf("expected insight body preserved, got %v", item["ai_insights"])
	}
	if out.GetFields()["timestamp"].GetStringValue() != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp %v", out.GetFields()["timestamp"])
	}
}

type stubScoringServer struct{}

func (stubScoringServer) ScoreMetrics(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"results": []any{}})
}

func (stubScoringServer) AnalyzeLogs(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"echo": in.AsMap()["log_groups"]})
}

func (stubScoringServer) HealthCheck(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "SERVING"})
}

func TestServerRoundTrip(t *testing.T) {
	srv, err := NewServer(config.ServerConfig{Address: "127.0.0.1:0", GracefulTimeout: time.Second}, stubScoringServer{})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	go func() { _ = srv.Start() }()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), srv.GracefulTimeout())
		defer cancel()
		srv.Shutdown(ctx)
	}()

	conn, err := grpc.NewClient(srv.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := NewAnomalyScoringClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := client.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if health.GetFields()["status"].GetStringValue() != "SERVING" {
		t.Fatalf("unexpected health %v", health)
	}

	req, _ := structpb.NewStruct(map[string]any{"log_groups": []any{"a"}})
	resp, err := client.AnalyzeLogs(ctx, req)
	if err != nil {
		t.Fatalf("analyze logs: %v", err)
	}
	if got := resp.GetFields()["echo"].GetListValue().GetValues()[0].GetStringValue(); got != "a" {
		t.Fatalf("unexpected echo %q", got)
	}
}
