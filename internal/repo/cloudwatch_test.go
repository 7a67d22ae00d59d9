package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

type fakeCloudWatch struct {
	statsInput *cloudwatch.GetMetricStatisticsInput
	datapoints []types.Datapoint
	statsErr   error
	puts       []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	f.statsInput = params
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return &cloudwatch.GetMetricStatisticsOutput{Datapoints: f.datapoints}, nil
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.puts = append(f.puts, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestCloudWatchFetchMetricSeries(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakeCloudWatch{datapoints: []types.Datapoint{
		{Timestamp: aws.Time(ts.Add(5 * time.Minute)), Sum: aws.Float64(3)},
		{Timestamp: aws.Time(ts), Sum: aws.Float64(1)},
		{Timestamp: aws.Time(ts.Add(10 * time.Minute)), Average: aws.Float64(9)},
	}}
	client := NewCloudWatchClient(fake)

	desc := models.MetricDescriptor{
		Namespace:  "AWS/Lambda",
		MetricName: "Errors",
		Dimensions: map[string]string{"FunctionName": "checkout", "Alias": "live"},
		Statistic:  models.StatisticSum,
	}
	series, err := client.FetchMetricSeries(context.Background(), desc, ts.Add(-24*time.Hour), ts)
	require.NoError(t, err)

	assert.Equal(t, int32(300), aws.ToInt32(fake.statsInput.Period))
	assert.Equal(t, []types.Statistic{types.StatisticSum}, fake.statsInput.Statistics)
	require.Len(t, fake.statsInput.Dimensions, 2)
	assert.Equal(t, "Alias", aws.ToString(fake.statsInput.Dimensions[0].Name))

	require.Len(t, series.Samples, 2, "datapoints without the requested statistic are skipped")
	assert.Equal(t, 3.0, series.Samples[0].Value)
	assert.Equal(t, 1.0, series.Samples[1].Value)
}

func TestCloudWatchFetchMetricSeriesError(t *testing.T) {
	client := NewCloudWatchClient(&fakeCloudWatch{statsErr: errors.New("AccessDenied")})
	_, err := client.FetchMetricSeries(context.Background(), models.MetricDescriptor{Namespace: "AWS/Lambda", MetricName: "Duration"}, time.Time{}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestCloudWatchPublishScore(t *testing.T) {
	fake := &fakeCloudWatch{}
	client := NewCloudWatchClient(fake)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	outcome := models.MetricOutcome{
		Descriptor: models.MetricDescriptor{Namespace: "AWS/Lambda", MetricName: "Duration", Dimensions: map[string]string{"FunctionName": "checkout"}},
		Result:     &models.ScoreResult{Status: models.ScoreStatusOK, Score: 0.64},
	}
	require.NoError(t, client.PublishScore(context.Background(), outcome))
	require.NoError(t, client.PublishScore(context.Background(), models.MetricOutcome{Error: "boom"}))

	require.Len(t, fake.puts, 1)
	input := fake.puts[0]
	assert.Equal(t, ScoreNamespace, aws.ToString(input.Namespace))
	datum := input.MetricData[0]
	assert.Equal(t, "AnomalyScore", aws.ToString(datum.MetricName))
	assert.Equal(t, 0.64, aws.ToFloat64(datum.Value))
	assert.Equal(t, types.StandardUnitNone, datum.Unit)
	assert.Equal(t, now, aws.ToTime(datum.Timestamp))
	require.Len(t, datum.Dimensions, 2)
	assert.Equal(t, "MetricName", aws.ToString(datum.Dimensions[1].Name))
	assert.Equal(t, "Duration", aws.ToString(datum.Dimensions[1].Value))
}

func TestCloudWatchPublishLogAnalysis(t *testing.T) {
	fake := &fakeCloudWatch{}
	client := NewCloudWatchClient(fake)

	analysis := models.LogAnalysis{LogGroup: "/aws/lambda/checkout", AnomalyScore: 51, ErrorCount: 30}
	require.NoError(t, client.PublishLogAnalysis(context.Background(), analysis))

	require.Len(t, fake.puts, 1)
	input := fake.puts[0]
	assert.Equal(t, LogAnalysisNamespace, aws.ToString(input.Namespace))
	require.Len(t, input.MetricData, 2)
	assert.Equal(t, 51.0, aws.ToFloat64(input.MetricData[0].Value))
	assert.Equal(t, types.StandardUnitCount, input.MetricData[1].Unit)
	assert.Equal(t, 30.0, aws.ToFloat64(input.MetricData[1].Value))
	assert.Equal(t, "LogGroup", aws.ToString(input.MetricData[1].Dimensions[0].Name))
}
