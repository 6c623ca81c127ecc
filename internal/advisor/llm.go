package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
	"github.com/jichang0619/aitrade/internal/infra"
)

const systemPrompt = `You are a crypto futures trading advisor. You receive market data
for one symbol and must answer with a single JSON object:

{"action": "...", "percentage": N, "reason": "..."}

action is one of: open_long, open_short, close_long, close_short, hold.
percentage is an integer 1-100: for opens, the share of available capital
to commit; for closes, the share of the position to unwind. For hold,
use 0. reason is a short explanation of the decision.

Consider the technical indicators, the fear & greed index, the current
position and the reflection on recent trades. Be conservative: prefer
hold over a weak signal.`

// decision is the advisor's wire format.
type decision struct {
	Action     string `json:"action"`
	Percentage int    `json:"percentage"`
	Reason     string `json:"reason"`
}

// OpenAIAdvisor asks a chat model for the next instruction. Calls run
// behind a circuit breaker so a flapping API degrades to hold instead of
// hammering the endpoint every cycle.
type OpenAIAdvisor struct {
	client          *openai.Client
	model           string
	reflectionModel string
	breaker         *infra.CircuitBreaker
	logger          *slog.Logger
}

// NewOpenAIAdvisor creates the advisor.
func NewOpenAIAdvisor(apiKey, model, reflectionModel string, logger *slog.Logger) *OpenAIAdvisor {
	return &OpenAIAdvisor{
		client:          openai.NewClient(apiKey),
		model:           model,
		reflectionModel: reflectionModel,
		breaker:         infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("openai")),
		logger:          logger,
	}
}

// Decide asks the model for the next instruction.
func (a *OpenAIAdvisor) Decide(ctx context.Context, mctx MarketContext) (domain.TradingInstruction, error) {
	if !a.breaker.Allow() {
		return domain.TradingInstruction{}, fmt.Errorf("advisor circuit open")
	}

	payload, err := json.Marshal(buildContextPayload(mctx))
	if err != nil {
		return domain.TradingInstruction{}, err
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		a.breaker.RecordFailure()
		return domain.TradingInstruction{}, fmt.Errorf("advisor request: %w", err)
	}
	a.breaker.RecordSuccess()

	if len(resp.Choices) == 0 {
		return domain.TradingInstruction{}, fmt.Errorf("advisor returned no choices")
	}

	instr, err := parseDecision(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.TradingInstruction{}, err
	}

	a.logger.Info("Advisor decision",
		slog.String("action", string(instr.Action)),
		slog.Int("percentage", instr.Percentage),
		slog.String("reason", instr.Reason))
	return instr, nil
}

// Reflect summarizes recent trades into lessons for the next decision.
func (a *OpenAIAdvisor) Reflect(ctx context.Context, trades []domain.TradeRecord, markPrice decimal.Decimal) (string, error) {
	if len(trades) == 0 {
		return "", nil
	}
	if !a.breaker.Allow() {
		return "", fmt.Errorf("advisor circuit open")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Current price: %s\nRecent trades, newest first:\n", markPrice)
	for _, t := range trades {
		fmt.Fprintf(&sb, "- %s %s %d%% at %s (balance %s, outcome %s): %s\n",
			t.Timestamp.Format("2006-01-02 15:04"),
			t.Action, t.Percentage, t.Price, t.Balance, t.Status, t.Reason)
	}
	sb.WriteString("\nIn a short paragraph, what worked, what did not, and what should change?")

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.reflectionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You review a crypto trading bot's recent trades and extract concise lessons."},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	})
	if err != nil {
		a.breaker.RecordFailure()
		return "", fmt.Errorf("reflection request: %w", err)
	}
	a.breaker.RecordSuccess()

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("reflection returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// parseDecision validates the model's JSON answer into an instruction.
// Leverage is left for the caller.
func parseDecision(content string) (domain.TradingInstruction, error) {
	var d decision
	if err := json.Unmarshal([]byte(content), &d); err != nil {
		return domain.TradingInstruction{}, fmt.Errorf("malformed advisor response: %w", err)
	}

	action, err := domain.ParseAction(strings.ToLower(strings.TrimSpace(d.Action)))
	if err != nil {
		return domain.TradingInstruction{}, fmt.Errorf("advisor response: %w", err)
	}

	instr := domain.TradingInstruction{
		Action:     action,
		Percentage: d.Percentage,
		Reason:     d.Reason,
	}
	if action != domain.ActionHold && (d.Percentage < 1 || d.Percentage > 100) {
		return domain.TradingInstruction{}, fmt.Errorf("advisor percentage out of range: %d", d.Percentage)
	}
	return instr, nil
}

// buildContextPayload flattens the market context into the JSON document
// sent as the user message.
func buildContextPayload(mctx MarketContext) map[string]any {
	return map[string]any{
		"symbol":            mctx.Symbol,
		"mark_price":        mctx.MarkPrice.String(),
		"available_balance": mctx.Balance.String(),
		"position": map[string]any{
			"quantity":       mctx.Position.Quantity.String(),
			"entry_price":    mctx.Position.EntryPrice.String(),
			"unrealized_pnl": mctx.Position.UnrealizedPnl.String(),
		},
		"daily_indicators":  mctx.DailyInd,
		"hourly_indicators": mctx.HourlyInd,
		"fear_greed": map[string]any{
			"value":          mctx.Sentiment.Value,
			"classification": mctx.Sentiment.Classification,
		},
		"daily_candles":  candlePayload(mctx.Daily),
		"hourly_candles": candlePayload(mctx.Hourly),
		"reflection":     mctx.Reflection,
	}
}

func candlePayload(klines []domain.Kline) []map[string]string {
	out := make([]map[string]string, 0, len(klines))
	for _, k := range klines {
		out = append(out, map[string]string{
			"open":   k.Open.String(),
			"high":   k.High.String(),
			"low":    k.Low.String(),
			"close":  k.Close.String(),
			"volume": k.Volume.String(),
		})
	}
	return out
}
