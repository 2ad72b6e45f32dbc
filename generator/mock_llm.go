package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, p Prompt) (string, error) {
	notes := between(p.User, "RAW NOTES:\n", "\n\nREQUIREMENTS:")
	title := firstLine(notes)
	if title == "" {
		title = "Untitled Role"
	}

	art := Artifact{
		JobDescription: JobDescription{
			Title:            title,
			Summary:          "Auto-generated summary for: " + title,
			Responsibilities: []string{"Own delivery of the work described in the notes"},
			Qualifications:   []string{"Experience matching the notes"},
			CallToAction:     "Apply today.",
		},
	}
	for i := 1; i <= QuestionCount; i++ {
		art.InterviewGuide = append(art.InterviewGuide, InterviewQuestion{
			Question:    fmt.Sprintf("Tell me about a time you demonstrated skill #%d.", i),
			TargetSkill: fmt.Sprintf("skill-%d", i),
			Rationale:   "Placeholder rationale.",
		})
	}
	b, err := json.Marshal(art)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Stream 把用户请求追加到当前笔记里，并按修订格式回复。
func (m MockLLM) Stream(_ context.Context, p Prompt) iter.Seq2[string, error] {
	notes := between(p.System, "\"\"\"\n", "\n\"\"\"")
	revised := strings.TrimSpace(notes + "\n" + p.User)
	// same tags the chat extractor looks for
	reply := "Sure, I folded your request into the notes.\n[REVISED_PROMPT]" + revised + "[/REVISED_PROMPT]"
	return func(yield func(string, error) bool) {
		for _, word := range strings.SplitAfter(reply, " ") {
			if !yield(word, nil) {
				return
			}
		}
	}
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:j])
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
