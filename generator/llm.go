package generator

import (
	"context"
	"iter"
)

// LLMClient 抽象大模型客户端，便于替换/Mock。
type LLMClient interface {
	// Complete performs a one-shot call. When p.Schema is set the reply is a JSON document.
	Complete(ctx context.Context, p Prompt) (string, error)
	// Stream yields text fragments in order; a non-nil error ends the sequence.
	Stream(ctx context.Context, p Prompt) iter.Seq2[string, error]
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}
