package generator

import (
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// QuestionCount is how many interview questions the directive asks for.
// The count is requested, not enforced.
const QuestionCount = 10

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Prompt 表示发送给 LLM 的消息集合。
type Prompt struct {
	System  string
	User    string
	History []Message
	// Schema, when set, asks the backend for a single JSON document of this shape.
	Schema *jsonschema.Schema
	// ThinkingBudget is a provider tuning knob; zero leaves the provider default.
	ThinkingBudget int
}

// Message 是一条带角色的历史消息。
type Message struct {
	Role    string
	Content string
}

// BuildGenerationPrompt 生成 notes → artifact 的一次性提示词，notes 原样嵌入。
func BuildGenerationPrompt(notes string) Prompt {
	var sb strings.Builder
	sb.WriteString("Act as a world-class hiring manager and talent strategist.\n")
	sb.WriteString(fmt.Sprintf("Convert the following raw hiring notes into a high-converting LinkedIn job description and a %d-question behavioral interview guide.\n\n", QuestionCount))
	sb.WriteString("RAW NOTES:\n")
	sb.WriteString(notes)
	sb.WriteString("\n\nREQUIREMENTS:\n")
	sb.WriteString("1. Job description: professional, engaging, and formatted for LinkedIn's layout.\n")
	sb.WriteString(fmt.Sprintf("2. Interview guide: exactly %d questions. Each must be behavioral and follow the STAR method (situation, task, action, result), targeting a specific hard or soft skill identified in the notes.\n", QuestionCount))
	sb.WriteString("Respond with a single JSON document matching the provided schema.")

	return Prompt{
		System: "Return only JSON. Do not add commentary.",
		User:   sb.String(),
		Schema: OutputSchema(),
	}
}
