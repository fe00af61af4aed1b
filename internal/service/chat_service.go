package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"fintrack/internal/dto"
	"fintrack/pkg/llm"
	"fintrack/pkg/moneyfmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxChatMessageRunes = 2000
	maxChatHistory      = 10
	chatStatsDays       = 30
)

type ChatService struct {
	llm      *llm.Client
	stats    TransactionStats
	currency string
	now      func() time.Time
	logger   *zap.Logger
}

func NewChatService(client *llm.Client, stats TransactionStats, currency string, logger *zap.Logger) *ChatService {
	if currency == "" {
		currency = moneyfmt.DefaultCurrency
	}
	return &ChatService{
		llm:      client,
		stats:    stats,
		currency: currency,
		now:      time.Now,
		logger:   logger,
	}
}

// Chat answers one advisor message. Only the last few history turns are sent.
func (s *ChatService) Chat(ctx context.Context, userID uuid.UUID, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, &ValidationError{Message: "message is required"}
	}
	if utf8.RuneCountInString(message) > maxChatMessageRunes {
		return nil, validationf("message must be at most %d characters", maxChatMessageRunes)
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: s.systemPrompt(ctx, userID)}}
	messages = append(messages, historyTurns(req.History)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: cleanText(message)})

	out, err := s.llm.Complete(ctx, llm.Request{
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		s.logger.Error("Chat completion failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, upstreamFrom("chat", err)
	}

	return &dto.ChatResponse{
		Response: strings.TrimSpace(out.Content),
		Usage: dto.ChatUsage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
	}, nil
}

func (s *ChatService) systemPrompt(ctx context.Context, userID uuid.UUID) string {
	var b strings.Builder
	b.WriteString("You are a friendly personal finance advisor inside a budgeting app. ")
	b.WriteString("Answer concisely and practically. If a question is not about personal finance, steer the conversation back politely.\n")

	from, to := window(s.now(), chatStatsDays)
	totals, err := s.stats.Totals(ctx, userID, from, to)
	if err != nil {
		// the advisor still answers without numbers
		s.logger.Warn("Failed to load chat context", zap.String("user_id", userID.String()), zap.Error(err))
		return b.String()
	}

	fmt.Fprintf(&b, "\nThe user's last %d days: income %s (%d transactions), expense %s (%d transactions), balance %s.",
		chatStatsDays,
		moneyfmt.Format(totals.Income, s.currency), totals.IncomeCount,
		moneyfmt.Format(totals.Expense, s.currency), totals.ExpenseCount,
		moneyfmt.Format(totals.Income.Sub(totals.Expense), s.currency),
	)
	return b.String()
}

func historyTurns(history []dto.ChatMessage) []llm.Message {
	if len(history) > maxChatHistory {
		history = history[len(history)-maxChatHistory:]
	}
	turns := make([]llm.Message, 0, len(history))
	for _, h := range history {
		content := strings.TrimSpace(cleanText(h.Content))
		if content == "" {
			continue
		}
		role := llm.RoleUser
		if h.Role == string(llm.RoleAssistant) {
			role = llm.RoleAssistant
		}
		turns = append(turns, llm.Message{Role: role, Content: content})
	}
	return turns
}

// upstreamFrom maps a backend failure to an UpstreamServiceError. Failures
// without an HTTP status surface as 503.
func upstreamFrom(operation string, err error) *UpstreamServiceError {
	var se *llm.StatusError
	if errors.As(err, &se) {
		return newUpstreamError(operation, se.StatusCode, se.Body)
	}
	return newUpstreamError(operation, http.StatusServiceUnavailable, err.Error())
}
