package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

const (
	// DefaultModelID is used when the configuration names no model.
	DefaultModelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	// DefaultMaxTokens bounds the model response.
	DefaultMaxTokens = 1000
	// PromptLines caps the log lines embedded into the prompt.
	PromptLines = 20

	anthropicVersion = "bedrock-2023-05-31"
)

const promptTemplate = `Analyze these AWS CloudWatch logs and provide insights:

%s

Provide:
1. Root cause analysis
2. Recommended actions
3. Potential impact assessment

Format as JSON with keys: root_cause, recommendations, impact.`

// BedrockAPI is the subset of the Bedrock runtime client used here.
type BedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider asks a Bedrock-hosted Anthropic model for root cause,
// recommendations and impact given a sample of log lines.
type BedrockProvider struct {
	api       BedrockAPI
	maxTokens int
	logger    *slog.Logger
}

// NewBedrockProvider wraps a Bedrock runtime client.
func NewBedrockProvider(api BedrockAPI, maxTokens int, logger *slog.Logger) *BedrockProvider {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BedrockProvider{api: api, maxTokens: maxTokens, logger: logger}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []message `json:"messages"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Insights invokes modelID with a prompt built from the first PromptLines
// lines. A JSON reply is returned verbatim; free text is wrapped as
// {"insights": text}.
func (p *BedrockProvider) Insights(ctx context.Context, modelID string, lines []string) (models.Insight, error) {
	const op = "bedrock.InvokeModel"
	if p == nil || p.api == nil {
		return models.Insight{}, utils.NotConfigured(op, "bedrock client")
	}
	if modelID == "" {
		modelID = DefaultModelID
	}

	sample := lines
	if len(sample) > PromptLines {
		sample = sample[:PromptLines]
	}
	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        p.maxTokens,
		Messages:         []message{{Role: "user", Content: BuildPrompt(sample)}},
	})
	if err != nil {
		return models.Insight{}, fmt.Errorf("marshal bedrock request: %w", err)
	}

	out, err := p.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return models.Insight{}, utils.NewAppError(op, modelID, err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return models.Insight{}, utils.NewAppError(op, "decode response", err)
	}
	if len(resp.Content) == 0 {
		return models.Insight{}, utils.NewAppError(op, modelID, errors.New("empty content"))
	}

	text := strings.TrimSpace(resp.Content[0].Text)
	p.logger.Debug("bedrock insight received", slog.String("model_id", modelID), slog.Int("chars", len(text)))
	return parseInsight(text)
}

// BuildPrompt renders the analysis prompt for a sample of log lines.
func BuildPrompt(lines []string) string {
	return fmt.Sprintf(promptTemplate, strings.Join(lines, "\n"))
}

func parseInsight(text string) (models.Insight, error) {
	if text != "" && json.Valid([]byte(text)) {
		var compact bytes.Buffer
		if err := json.Compact(&compact, []byte(text)); err == nil {
			return models.Insight{Body: compact.Bytes()}, nil
		}
	}
	wrapped, err := json.Marshal(map[string]string{"insights": text})
	if err != nil {
		return models.Insight{}, err
	}
	return models.Insight{Body: wrapped}, nil
}
