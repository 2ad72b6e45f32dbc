package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []Prompt
}

func (f *fakeLLM) Complete(_ context.Context, p Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	return f.reply, f.err
}

func (f *fakeLLM) Stream(context.Context, Prompt) iter.Seq2[string, error] {
	return func(func(string, error) bool) {}
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func sampleArtifact(title string, questions int) Artifact {
	art := Artifact{
		JobDescription: JobDescription{
			Title:            title,
			CompanyName:      "Ledgerly",
			Location:         "Remote (EST)",
			Summary:          "Build the payments core.",
			Responsibilities: []string{"Design Go services", "Own on-call"},
			Qualifications:   []string{"5+ years backend", "Go in production"},
			Benefits:         []string{"$160k", "3 weeks PTO"},
		},
	}
	for i := 0; i < questions; i++ {
		art.InterviewGuide = append(art.InterviewGuide, InterviewQuestion{
			Question:           fmt.Sprintf("Tell me about incident %d.", i+1),
			TargetSkill:        "Incident response",
			Rationale:          "On-call ownership",
			ExpectedIndicators: []string{"Clear timeline"},
		})
	}
	return art
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestGenerate_ReturnsArtifact(t *testing.T) {
	notes := "Senior backend engineer, Go, fintech, remote EST, $160k, 3 weeks PTO"
	llm := &fakeLLM{reply: mustJSON(t, sampleArtifact("Senior Backend Engineer", QuestionCount))}
	agent, err := NewAgent(llm)
	require.NoError(t, err)

	art, err := agent.Generate(context.Background(), notes)
	require.NoError(t, err)

	assert.Contains(t, art.JobDescription.Title, "Engineer")
	assert.Len(t, art.InterviewGuide, QuestionCount)
	require.Equal(t, 1, llm.calls())
	p := llm.prompts[0]
	assert.Contains(t, p.User, notes)
	assert.NotNil(t, p.Schema)
	assert.Equal(t, DefaultThinkingBudget, p.ThinkingBudget)
}

func TestGenerate_EmptyInputNeverReachesTransport(t *testing.T) {
	llm := &fakeLLM{}
	agent, err := NewAgent(llm)
	require.NoError(t, err)

	_, err = agent.Generate(context.Background(), "  \n\t ")
	require.Error(t, err)
	assert.Equal(t, ReasonEmptyInput, ReasonOf(err))
	assert.Zero(t, llm.calls())
}

func TestGenerate_TransportFailure(t *testing.T) {
	cause := errors.New("connection refused")
	agent, err := NewAgent(&fakeLLM{err: cause})
	require.NoError(t, err)

	_, err = agent.Generate(context.Background(), "notes")
	require.Error(t, err)
	assert.Equal(t, ReasonTransportFailure, ReasonOf(err))
	assert.ErrorIs(t, err, cause)
}

func TestGenerate_SchemaParseFailure(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "Here is your job description!"},
		{"empty", "   "},
		{"missing summary", `{"jobDescription":{"title":"Engineer","responsibilities":["a"],"qualifications":["b"]},"interviewGuide":[{"question":"q","targetSkill":"s","rationale":"r"}]}`},
		{"empty guide", `{"jobDescription":{"title":"Engineer","summary":"s","responsibilities":["a"],"qualifications":["b"]},"interviewGuide":[]}`},
		{"question without skill", `{"jobDescription":{"title":"Engineer","summary":"s","responsibilities":["a"],"qualifications":["b"]},"interviewGuide":[{"question":"q","rationale":"r"}]}`},
		{"unknown field", `{"jobDescription":{"title":"Engineer","summary":"s","responsibilities":["a"],"qualifications":["b"],"salary":"100k"},"interviewGuide":[{"question":"q","targetSkill":"s","rationale":"r"}]}`},
		{"trailing document", `{"jobDescription":{"title":"Engineer","summary":"s","responsibilities":["a"],"qualifications":["b"]},"interviewGuide":[{"question":"q","targetSkill":"s","rationale":"r"}]} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent, err := NewAgent(&fakeLLM{reply: tt.reply})
			require.NoError(t, err)

			art, err := agent.Generate(context.Background(), "notes")
			require.Error(t, err)
			assert.Equal(t, ReasonSchemaParseFailure, ReasonOf(err))
			assert.Equal(t, Artifact{}, art)

			var ge *GenerationError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, ParseFailureMessage, ge.Message)
		})
	}
}

func TestGenerate_QuestionCountIsPassedThrough(t *testing.T) {
	logger, hook := test.NewNullLogger()
	agent, err := NewAgent(&fakeLLM{reply: mustJSON(t, sampleArtifact("Engineer", 8))}, WithLogger(logger))
	require.NoError(t, err)

	art, err := agent.Generate(context.Background(), "notes")
	require.NoError(t, err)
	assert.Len(t, art.InterviewGuide, 8)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, 8, hook.LastEntry().Data["questions"])
}

func TestGenerate_CodeFencedReply(t *testing.T) {
	reply := "```json\n" + mustJSON(t, sampleArtifact("Engineer", QuestionCount)) + "\n```"
	agent, err := NewAgent(&fakeLLM{reply: reply})
	require.NoError(t, err)

	art, err := agent.Generate(context.Background(), "notes")
	require.NoError(t, err)
	assert.Equal(t, "Engineer", art.JobDescription.Title)
}

func TestGenerate_ConcurrentCallsAreIndependent(t *testing.T) {
	llm := &fakeLLM{reply: mustJSON(t, sampleArtifact("Engineer", QuestionCount))}
	agent, err := NewAgent(llm)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = agent.Generate(context.Background(), fmt.Sprintf("notes %d", i))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, len(errs), llm.calls())
}

func TestGenerate_WithMockLLM(t *testing.T) {
	agent, err := NewAgent(MockLLM{}, WithThinkingBudget(0))
	require.NoError(t, err)

	art, err := agent.Generate(context.Background(), "Staff Data Engineer\nSpark, Airflow")
	require.NoError(t, err)
	assert.Equal(t, "Staff Data Engineer", art.JobDescription.Title)
	assert.Len(t, art.InterviewGuide, QuestionCount)
}

func TestNewAgent_RequiresClient(t *testing.T) {
	_, err := NewAgent(nil)
	assert.Error(t, err)
}
