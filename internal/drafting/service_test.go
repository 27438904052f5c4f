package drafting

import (
	"context"
	"fmt"
	"testing"

	"github.com/caredraft/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeInvoker returns a fixed response and records invocations.
type fakeInvoker struct {
	text  string
	err   error
	calls int
	last  []llm.Message
}

func (f *fakeInvoker) Complete(_ context.Context, messages []llm.Message, _ bool) (*llm.Completion, error) {
	f.calls++
	f.last = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{
		Text:     f.text,
		Model:    "gpt-4o-mini",
		Provider: "openai",
		Usage:    llm.Usage{Prompt: 10, Completion: 5, Total: 15},
	}, nil
}

type fakeSource struct {
	study *Study
	err   error
	calls int
}

func (f *fakeSource) FindStudy(context.Context, string, string) (*Study, error) {
	f.calls++
	return f.study, f.err
}

func TestRephraseWellFormed(t *testing.T) {
	inv := &fakeInvoker{text: `{"rephrased_text":"Our service delivers outstanding care.","tone":"professional"}`}
	s := NewService(inv, nil, zaptest.NewLogger(t))

	got, err := s.Rephrase(context.Background(), "We do good care.", "professional")
	require.NoError(t, err)
	assert.Equal(t, "Our service delivers outstanding care.", got.RephrasedText)
	assert.Equal(t, "professional", got.Tone)
	assert.False(t, got.Meta.Degraded)
	assert.Equal(t, 15, got.Meta.TokensUsed)
}

func TestRephraseDegradedToProse(t *testing.T) {
	inv := &fakeInvoker{text: "Our service delivers outstanding, person-centred care."}
	s := NewService(inv, nil, zaptest.NewLogger(t))

	got, err := s.Rephrase(context.Background(), "We do good care.", "professional")
	require.NoError(t, err)
	assert.Equal(t, "Our service delivers outstanding, person-centred care.", got.RephrasedText)
	assert.True(t, got.Meta.Degraded)
}

func TestTranslateReportsRequestedLanguage(t *testing.T) {
	inv := &fakeInvoker{text: `{"translated_text":"Bonjour"}`}
	s := NewService(inv, nil, zaptest.NewLogger(t))

	got, err := s.Translate(context.Background(), "Hello", "French")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", got.TranslatedText)
	assert.Equal(t, "French", got.TargetLanguage)
}

func TestReduceStatistics(t *testing.T) {
	inv := &fakeInvoker{text: `{"reduced_text":"Care is outstanding and safe."}`}
	s := NewService(inv, nil, zaptest.NewLogger(t))

	original := "Our care provision is consistently outstanding and it is also demonstrably safe." // 12 words
	got, err := s.Reduce(context.Background(), original, 50)
	require.NoError(t, err)
	assert.Equal(t, 12, got.OriginalWordCount)
	assert.Equal(t, 5, got.ReducedWordCount)
	assert.Equal(t, ReductionPercentage(12, 5), got.ReductionPercentage)
	assert.Equal(t, 58, got.ReductionPercentage) // round((12-5)/12*100)
}

func TestBrainstormParsesArray(t *testing.T) {
	inv := &fakeInvoker{text: `Some preamble ["idea one","idea two","idea three"]`}
	s := NewService(inv, nil, zaptest.NewLogger(t))

	got, err := s.Brainstorm(context.Background(), "How do you retain staff?", "residential care", 2)
	require.NoError(t, err)
	// Truncated to the requested count.
	assert.Equal(t, []string{"idea one", "idea two"}, got.Ideas)
}

func TestBrainstormDegradedSplitsLines(t *testing.T) {
	inv := &fakeInvoker{text: "- run a mentor scheme\n- pay travel time\n"}
	s := NewService(inv, nil, zaptest.NewLogger(t))

	got, err := s.Brainstorm(context.Background(), "How do you retain staff?", "residential care", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"run a mentor scheme", "pay travel time"}, got.Ideas)
	assert.True(t, got.Meta.Degraded)
}

func TestInsertCaseStudyPrefersFirstSource(t *testing.T) {
	local := &fakeSource{study: &Study{Title: "Cedar Lodge", Summary: "Falls reduced 40%", Origin: "answer_bank"}}
	web := &fakeSource{study: &Study{Title: "Web result", Summary: "x", Origin: "web_research"}}
	inv := &fakeInvoker{text: `{"updated_text":"Section with Cedar Lodge woven in.","case_study":{"title":"ignored","summary":"Falls reduced 40%"}}`}
	s := NewService(inv, []StudySource{local, web}, zaptest.NewLogger(t))

	got, err := s.InsertCaseStudy(context.Background(), "Section.", "residential care", "end")
	require.NoError(t, err)
	assert.Equal(t, "Cedar Lodge", got.CaseStudy.Title)
	assert.Equal(t, "answer_bank", got.CaseStudy.Origin)
	assert.Equal(t, 1, local.calls)
	assert.Equal(t, 0, web.calls)
}

func TestInsertCaseStudyFallsThroughFailedSource(t *testing.T) {
	broken := &fakeSource{err: fmt.Errorf("index offline")}
	web := &fakeSource{study: &Study{Title: "Gov.uk example", Summary: "s", Origin: "web_research"}}
	inv := &fakeInvoker{text: `{"updated_text":"done","case_study":{}}`}
	s := NewService(inv, []StudySource{broken, web}, zaptest.NewLogger(t))

	got, err := s.InsertCaseStudy(context.Background(), "Section.", "domiciliary care", "")
	require.NoError(t, err)
	assert.Equal(t, "Gov.uk example", got.CaseStudy.Title)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, web.calls)
}

func TestProviderErrorPropagates(t *testing.T) {
	inv := &fakeInvoker{err: &llm.ModelError{Kind: llm.KindUnavailable, Provider: "openai"}}
	s := NewService(inv, nil, zaptest.NewLogger(t))

	_, err := s.Summarise(context.Background(), "text", 50)
	var merr *llm.ModelError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, llm.KindUnavailable, merr.Kind)
}

func TestDeterministicFormattingIsByteIdentical(t *testing.T) {
	inv := &fakeInvoker{text: `{"summary":"Short summary."}`}
	s := NewService(inv, nil, zaptest.NewLogger(t))

	a, err := s.Summarise(context.Background(), "long text here", 20)
	require.NoError(t, err)
	b, err := s.Summarise(context.Background(), "long text here", 20)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWordHelpers(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 3, WordCount("  a  b\tc "))
	assert.Equal(t, 0, ReductionPercentage(0, 0))
	assert.Equal(t, 50, ReductionPercentage(10, 5))
	assert.Equal(t, 33, ReductionPercentage(3, 2))
	assert.Equal(t, 0, ReductionPercentage(4, 4))
}
