package dto

type ChatMessage struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

type ChatRequest struct {
	Message string        `json:"message" validate:"required,max=2000"`
	History []ChatMessage `json:"history,omitempty"`
}

type ChatUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type ChatResponse struct {
	Response string    `json:"response"`
	Usage    ChatUsage `json:"usage"`
}
