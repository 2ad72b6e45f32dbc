package generator

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultThinkingBudget matches the deep-thinking budget used for generation.
const DefaultThinkingBudget = 32768

// Agent 负责把原始招聘笔记一次性转换成 Artifact。
// It holds no per-call state, so concurrent Generate calls are independent.
type Agent struct {
	llm            LLMClient
	log            logrus.FieldLogger
	thinkingBudget int
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithLogger sets the logger; nil keeps the standard logger.
func WithLogger(l logrus.FieldLogger) AgentOption {
	return func(a *Agent) {
		if l != nil {
			a.log = l
		}
	}
}

// WithThinkingBudget overrides DefaultThinkingBudget. Zero leaves the provider default.
func WithThinkingBudget(n int) AgentOption {
	return func(a *Agent) { a.thinkingBudget = n }
}

func NewAgent(llm LLMClient, opts ...AgentOption) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	a := &Agent{
		llm:            llm,
		log:            logrus.StandardLogger(),
		thinkingBudget: DefaultThinkingBudget,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Generate 调用模型并解析 Artifact。
// Errors are *GenerationError; there is no retry and no partial result.
func (a *Agent) Generate(ctx context.Context, notes string) (Artifact, error) {
	if strings.TrimSpace(notes) == "" {
		return Artifact{}, emptyInputError()
	}

	prompt := BuildGenerationPrompt(notes)
	prompt.ThinkingBudget = a.thinkingBudget

	log := a.log.WithField("notes_len", len(notes))
	log.Debug("generating recruitment artifact")

	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		log.WithError(err).Debug("generation transport failed")
		return Artifact{}, transportError(err)
	}
	art, err := PostProcess(raw)
	if err != nil {
		log.WithError(err).Error("failed to parse recruitment data")
		return Artifact{}, err
	}

	if n := len(art.InterviewGuide); n != QuestionCount {
		log.WithField("questions", n).Warnf("model returned %d interview questions, asked for %d", n, QuestionCount)
	}
	log.WithField("questions", len(art.InterviewGuide)).Debug("generated recruitment artifact")
	return art, nil
}
