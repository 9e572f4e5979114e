package router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/circuitbreaker"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/logger"
)

const classifySystemPrompt = `You are an intent classifier for a financial analysis platform.
Classify the user's request into exactly one target domain:
- "audit": general ledger, journal entries, payments, receivables, audit testing
- "lending": loan portfolios, borrowers, arrears, facilities, covenants

Respond with JSON only, no prose:
{"domain":"audit|lending","intent":"<short label>","confidence":0.0-1.0,"requires_clarification":false,"clarification_prompt":"","explanation":"<one sentence>"}
Set requires_clarification to true when the request cannot be assigned to a domain.`

// OpenAIRouter classifies with a chat completion. Retries are owned by the
// coordinator; the router only guards the upstream API with a breaker.
type OpenAIRouter struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	cb          *circuitbreaker.Breaker
}

func NewOpenAIRouter(apiKey, model string, temperature float32, timeoutSec int) *OpenAIRouter {
	if timeoutSec == 0 {
		timeoutSec = 15
	}

	cb := circuitbreaker.New("intent-router", circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
		Logger:           logger.GetLogger(),
	})

	logger.Info("OpenAI router initialized", zap.String("model", model))

	return &OpenAIRouter{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		timeout:     time.Duration(timeoutSec) * time.Second,
		cb:          cb,
	}
}

func (r *OpenAIRouter) Classify(ctx context.Context, text, sessionID, userID string) (*models.RoutingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var content string
	err := r.cb.Execute(ctx, func(ctx context.Context) error {
		resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       r.model,
			Temperature: r.temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: classifySystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: text},
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty completion response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("classification call failed: %w", err)
	}

	var result models.RoutingResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification response: %w", err)
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}

	logger.Debug("Query classified via LLM",
		zap.String("session_id", sessionID),
		zap.String("domain", result.Domain),
		zap.Float64("confidence", result.Confidence),
	)

	return &result, nil
}

func (r *OpenAIRouter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.client.ListModels(ctx)
	return err
}
