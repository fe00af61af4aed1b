package service

import (
	"context"
	"sync"

	"fintrack/pkg/llm"

	"go.uber.org/zap"
)

type scriptedProvider struct {
	name    string
	content string
	usage   llm.Usage
	err     error

	mu       sync.Mutex
	requests []llm.Request
}

func (p *scriptedProvider) Name() string {
	if p.name == "" {
		return "scripted"
	}
	return p.name
}

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.content, Usage: p.usage}, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *scriptedProvider) lastRequest() llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

func newLLM(providers ...llm.Provider) *llm.Client {
	return llm.NewClient(zap.NewNop(), providers...)
}
