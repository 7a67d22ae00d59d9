package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

// FromProtoMetricBatchRequest maps the gRPC payload into a validated MetricBatchRequest.
// A nil or empty payload selects the default metric set.
func FromProtoMetricBatchRequest(req *structpb.Struct) (models.MetricBatchRequest, error) {
	var out models.MetricBatchRequest
	if err := decodeStruct(req, &out); err != nil {
		return models.MetricBatchRequest{}, err
	}
	if err := out.Validate(); err != nil {
		return models.MetricBatchRequest{}, err
	}
	return out, nil
}

// FromProtoLogBatchRequest maps the gRPC payload into a validated LogBatchRequest.
func FromProtoLogBatchRequest(req *structpb.Struct) (models.LogBatchRequest, error) {
	var out models.LogBatchRequest
	if err := decodeStruct(req, &out); err != nil {
		return models.LogBatchRequest{}, err
	}
	if err := out.Validate(); err != nil {
		return models.LogBatchRequest{}, err
	}
	return out, nil
}

// ToProtoStruct converts any JSON-encodable report into a protobuf Struct.
func ToProtoStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("convert response: %w", err)
	}
	return out, nil
}

func decodeStruct(req *structpb.Struct, out any) error {
	if req == nil || len(req.GetFields()) == 0 {
		return nil
	}
	data, err := protojson.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
