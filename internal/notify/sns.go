package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

// maxSubjectLength is the SNS limit for email subjects.
const maxSubjectLength = 100

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes alerts as indented JSON to an SNS topic.
type SNSPublisher struct {
	api      SNSAPI
	topicARN string
	logger   *slog.Logger
}

// NewSNSPublisher returns nil when topicARN is empty so callers can skip the bus.
func NewSNSPublisher(api SNSAPI, topicARN string, logger *slog.Logger) *SNSPublisher {
	if topicARN == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SNSPublisher{api: api, topicARN: topicARN, logger: logger}
}

// Publish implements Publisher.
func (p *SNSPublisher) Publish(ctx context.Context, alert models.Alert) error {
	const op = "sns.Publish"
	if p == nil || p.api == nil {
		return utils.NotConfigured(op, "sns topic")
	}

	message, err := json.MarshalIndent(alert, "", "  ")
	if err != nil {
		return utils.NewAppError(op, "marshal alert", err)
	}
	out, err := p.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(truncateSubject(alert.Subject)),
		Message:  aws.String(string(message)),
	})
	if err != nil {
		return utils.NewAppError(op, p.topicARN, err)
	}
	p.logger.Info("alert sent to sns", slog.String("alert_id", alert.ID), slog.String("message_id", aws.ToString(out.MessageId)))
	return nil
}

func truncateSubject(subject string) string {
	if len(subject) <= maxSubjectLength {
		return subject
	}
	cut := subject[:maxSubjectLength]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
