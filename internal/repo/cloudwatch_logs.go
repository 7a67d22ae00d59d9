package repo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

// DefaultMaxLogEvents caps the events read per log group and window.
const DefaultMaxLogEvents = 10000

// CloudWatchLogsAPI is the subset of the CloudWatch Logs client used here.
type CloudWatchLogsAPI interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// CloudWatchLogsClient reads raw log lines from CloudWatch Logs.
type CloudWatchLogsClient struct {
	api       CloudWatchLogsAPI
	maxEvents int
}

// NewCloudWatchLogsClient wraps a CloudWatch Logs API client. maxEvents <= 0
// uses DefaultMaxLogEvents.
func NewCloudWatchLogsClient(api CloudWatchLogsAPI, maxEvents int) *CloudWatchLogsClient {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxLogEvents
	}
	return &CloudWatchLogsClient{api: api, maxEvents: maxEvents}
}

// FetchLogBatch pages through FilterLogEvents until the window is exhausted
// or maxEvents lines were read.
func (c *CloudWatchLogsClient) FetchLogBatch(ctx context.Context, logGroup string, start, end time.Time) (models.LogBatch, error) {
	const op = "cloudwatchlogs.FilterLogEvents"
	if c == nil || c.api == nil {
		return models.LogBatch{}, utils.NotConfigured(op, "cloudwatch logs client")
	}

	batch := models.LogBatch{LogGroup: logGroup, TimeRange: models.TimeRange{Start: start, End: end}}
	paginator := cloudwatchlogs.NewFilterLogEventsPaginator(c.api, &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(logGroup),
		StartTime:    aws.Int64(utils.EpochMillis(start)),
		EndTime:      aws.Int64(utils.EpochMillis(end)),
		Limit:        aws.Int32(int32(c.maxEvents)),
	})

	for paginator.HasMorePages() && len(batch.Lines) < c.maxEvents {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return models.LogBatch{}, utils.NewAppError(op, logGroup, err)
		}
		for _, event := range page.Events {
			if len(batch.Lines) >= c.maxEvents {
				break
			}
			batch.Lines = append(batch.Lines, aws.ToString(event.Message))
		}
	}
	return batch, nil
}
