package repo

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

const (
	// MetricPeriod is the aggregation period requested from CloudWatch.
	MetricPeriod = 300 * time.Second

	// ScoreNamespace receives one AnomalyScore datum per scored metric.
	ScoreNamespace = "AIOps/AnomalyScores"
	// LogAnalysisNamespace receives AnomalyScore and ErrorCount per log group.
	LogAnalysisNamespace = "AIOps/LogAnalysis"
)

// CloudWatchAPI is the subset of the CloudWatch client used here.
type CloudWatchAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchClient fetches metric statistics and publishes anomaly scores.
type CloudWatchClient struct {
	api CloudWatchAPI
	now func() time.Time
}

// NewCloudWatchClient wraps a CloudWatch API client.
func NewCloudWatchClient(api CloudWatchAPI) *CloudWatchClient {
	return &CloudWatchClient{api: api, now: time.Now}
}

// FetchMetricSeries returns the datapoints of desc over [start, end) at a
// five minute period, in the order CloudWatch returned them.
func (c *CloudWatchClient) FetchMetricSeries(ctx context.Context, desc models.MetricDescriptor, start, end time.Time) (models.MetricSeries, error) {
	const op = "cloudwatch.GetMetricStatistics"
	if c == nil || c.api == nil {
		return models.MetricSeries{}, utils.NotConfigured(op, "cloudwatch client")
	}
	desc = desc.WithDefaults()

	out, err := c.api.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(desc.Namespace),
		MetricName: aws.String(desc.MetricName),
		Dimensions: toDimensions(desc.Dimensions),
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(int32(MetricPeriod / time.Second)),
		Statistics: []types.Statistic{types.Statistic(desc.Statistic)},
	})
	if err != nil {
		return models.MetricSeries{}, utils.NewAppError(op, desc.Namespace+"/"+desc.MetricName, err)
	}

	series := models.MetricSeries{MetricDescriptor: desc, Samples: make([]models.Sample, 0, len(out.Datapoints))}
	for _, dp := range out.Datapoints {
		value, ok := statisticValue(dp, desc.Statistic)
		if !ok {
			continue
		}
		series.Samples = append(series.Samples, models.Sample{Timestamp: aws.ToTime(dp.Timestamp), Value: value})
	}
	return series, nil
}

// PublishScore writes the composite score of a scored metric. Failed items
// are not published.
func (c *CloudWatchClient) PublishScore(ctx context.Context, outcome models.MetricOutcome) error {
	const op = "cloudwatch.PutMetricData"
	if c == nil || c.api == nil {
		return utils.NotConfigured(op, "cloudwatch client")
	}
	if outcome.Failed() {
		return nil
	}

	dimensions := toDimensions(outcome.Descriptor.Dimensions)
	dimensions = append(dimensions, types.Dimension{
		Name:  aws.String("MetricName"),
		Value: aws.String(nonEmpty(outcome.Descriptor.MetricName, "unknown")),
	})

	_, err := c.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(ScoreNamespace),
		MetricData: []types.MetricDatum{{
			MetricName: aws.String("AnomalyScore"),
			Value:      aws.Float64(outcome.AnomalyScore()),
			Unit:       types.StandardUnitNone,
			Dimensions: dimensions,
			Timestamp:  aws.Time(c.now().UTC()),
		}},
	})
	if err != nil {
		return utils.NewAppError(op, ScoreNamespace, err)
	}
	return nil
}

// PublishLogAnalysis writes the anomaly score and error count of a log group.
func (c *CloudWatchClient) PublishLogAnalysis(ctx context.Context, analysis models.LogAnalysis) error {
	const op = "cloudwatch.PutMetricData"
	if c == nil || c.api == nil {
		return utils.NotConfigured(op, "cloudwatch client")
	}
	if analysis.Failed() {
		return nil
	}

	dimensions := []types.Dimension{{Name: aws.String("LogGroup"), Value: aws.String(analysis.LogGroup)}}
	_, err := c.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(LogAnalysisNamespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String("AnomalyScore"),
				Value:      aws.Float64(analysis.AnomalyScore),
				Unit:       types.StandardUnitNone,
				Dimensions: dimensions,
			},
			{
				MetricName: aws.String("ErrorCount"),
				Value:      aws.Float64(float64(analysis.ErrorCount)),
				Unit:       types.StandardUnitCount,
				Dimensions: dimensions,
			},
		},
	})
	if err != nil {
		return utils.NewAppError(op, LogAnalysisNamespace, err)
	}
	return nil
}

func toDimensions(dims map[string]string) []types.Dimension {
	if len(dims) == 0 {
		return []types.Dimension{}
	}
	names := make([]string, 0, len(dims))
	for name := range dims {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.Dimension, 0, len(names))
	for _, name := range names {
		out = append(out, types.Dimension{Name: aws.String(name), Value: aws.String(dims[name])})
	}
	return out
}

func statisticValue(dp types.Datapoint, stat models.Statistic) (float64, bool) {
	var v *float64
	switch stat {
	case models.StatisticSum:
		v = dp.Sum
	case models.StatisticMaximum:
		v = dp.Maximum
	case models.StatisticMinimum:
		v = dp.Minimum
	case models.StatisticSampleCount:
		v = dp.SampleCount
	default:
		v = dp.Average
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}
