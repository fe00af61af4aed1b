package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

const GigaChatName = "gigachat"

// GigaChat wraps the Sber GigaChat SDK as a Provider.
type GigaChat struct {
	client    *gigago.Client
	modelName string
}

// statusPattern matches the error gigago builds from a non-2xx chat reply.
var statusPattern = regexp.MustCompile(`(?s)^unexpected status (\d+): (.*)$`)

// NewGigaChat fetches the first access token. Extra options are applied after
// the scope and TLS settings.
func NewGigaChat(ctx context.Context, apiKey, scope string, insecureSkipVerify bool, logger *zap.Logger, extra ...gigago.Option) (*GigaChat, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(scope),
	}
	if insecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}
	opts = append(opts, extra...)

	client, err := gigago.NewClient(ctx, apiKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	return &GigaChat{client: client, modelName: "GigaChat"}, nil
}

func (g *GigaChat) Name() string { return GigaChatName }

// Complete maps system messages to the model instruction and folds any
// prior conversation turns into a single user message.
func (g *GigaChat) Complete(ctx context.Context, req Request) (*Response, error) {
	name := g.modelName
	if req.Model != "" {
		name = req.Model
	}
	model := g.client.GenerativeModel(name)
	model.Temperature = req.Temperature
	if req.MaxTokens > 0 {
		model.MaxTokens = int32(req.MaxTokens)
	}

	var system []string
	var turns []Message
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(system) > 0 {
		model.SystemInstruction = strings.Join(system, "\n\n")
	}

	resp, err := model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: foldTurns(turns)},
	})
	if err != nil {
		return nil, g.statusError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no response from GigaChat", ErrMalformedResponse)
	}

	return &Response{
		Content: strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Provider: g.Name(),
	}, nil
}

// statusError turns gigago's formatted status failure into a *StatusError.
// Transport errors keep their cause and carry no status.
func (g *GigaChat) statusError(err error) error {
	var msg string
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg = e.Error()
	}
	if m := statusPattern.FindStringSubmatch(msg); m != nil {
		code, convErr := strconv.Atoi(m[1])
		if convErr == nil {
			return &StatusError{Provider: g.Name(), StatusCode: code, Body: strings.TrimSpace(m[2])}
		}
	}
	return fmt.Errorf("failed to generate response: %w", err)
}

func (g *GigaChat) Close() error {
	if g.client != nil {
		g.client.Close()
	}
	return nil
}

func foldTurns(turns []Message) string {
	if len(turns) == 1 {
		return turns[0].Content
	}
	var b strings.Builder
	for i, m := range turns {
		if i == len(turns)-1 {
			b.WriteString("\n")
			b.WriteString(m.Content)
			break
		}
		label := "User"
		if m.Role == RoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, m.Content)
	}
	return strings.TrimSpace(b.String())
}
