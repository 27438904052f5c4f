// Package drafting orchestrates the AI context actions: build the prompt,
// invoke the model, extract structured data from its output and shape the
// endpoint response. Extraction failures never fail a request; the result is
// degraded to a best-effort payload and flagged as such.
package drafting

import (
	"context"
	"strings"

	"github.com/caredraft/internal/llm"
	"github.com/caredraft/internal/prompt"
	"go.uber.org/zap"
)

// Study is case-study source material located for insertion.
type Study struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Origin  string `json:"origin,omitempty"` // "answer_bank" or "web_research"
}

// StudySource locates case-study material for a topic within a sector.
// A nil *Study with nil error means "no match"; sources are consulted in
// order until one matches.
type StudySource interface {
	FindStudy(ctx context.Context, topic, sector string) (*Study, error)
}

// Service runs the per-operation pipelines. It is stateless between requests.
type Service struct {
	invoker llm.Invoker
	sources []StudySource
	logger  *zap.Logger
}

// NewService creates a drafting service. sources may be empty; the case-study
// operation then instructs the model to produce an illustrative example.
func NewService(invoker llm.Invoker, sources []StudySource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{invoker: invoker, sources: sources, logger: logger.Named("drafting")}
}

// Meta is the invocation metadata attached to every successful response.
type Meta struct {
	Model      string `json:"model"`
	Fallback   bool   `json:"fallback"`
	TokensUsed int    `json:"tokens_used,omitempty"`
	Degraded   bool   `json:"degraded,omitempty"`
}

func metaFrom(c *llm.Completion, degraded bool) Meta {
	return Meta{
		Model:      c.Model,
		Fallback:   c.FallbackUsed,
		TokensUsed: c.Usage.Total,
		Degraded:   degraded,
	}
}

// RephraseResult is the rephrase endpoint payload.
type RephraseResult struct {
	RephrasedText string `json:"rephrased_text"`
	Tone          string `json:"tone"`
	Meta          Meta   `json:"-"`
}

// Rephrase rewrites text in the requested tone.
func (s *Service) Rephrase(ctx context.Context, text, tone string) (*RephraseResult, error) {
	c, err := s.invoker.Complete(ctx, prompt.Rephrase(text, tone), false)
	if err != nil {
		return nil, err
	}

	var out struct {
		RephrasedText string `json:"rephrased_text"`
		Tone          string `json:"tone"`
	}
	degraded := !llm.ExtractInto(c.Text, &out) || out.RephrasedText == ""
	if degraded {
		// The model answered in prose; treat the whole reply as the rewrite.
		out.RephrasedText = llm.StripThinkTags(c.Text)
	}
	if out.Tone == "" {
		out.Tone = tone
	}
	return &RephraseResult{
		RephrasedText: out.RephrasedText,
		Tone:          out.Tone,
		Meta:          metaFrom(c, degraded),
	}, nil
}

// TranslateResult is the translate endpoint payload.
type TranslateResult struct {
	TranslatedText string `json:"translated_text"`
	TargetLanguage string `json:"target_language"`
	Meta           Meta   `json:"-"`
}

// Translate renders text in targetLanguage.
func (s *Service) Translate(ctx context.Context, text, targetLanguage string) (*TranslateResult, error) {
	c, err := s.invoker.Complete(ctx, prompt.Translate(text, targetLanguage), false)
	if err != nil {
		return nil, err
	}

	var out struct {
		TranslatedText string `json:"translated_text"`
	}
	degraded := !llm.ExtractInto(c.Text, &out) || out.TranslatedText == ""
	if degraded {
		out.TranslatedText = llm.StripThinkTags(c.Text)
	}
	return &TranslateResult{
		TranslatedText: out.TranslatedText,
		TargetLanguage: targetLanguage,
		Meta:           metaFrom(c, degraded),
	}, nil
}

// ReduceResult is the word-reduction endpoint payload.
type ReduceResult struct {
	ReducedText         string `json:"reduced_text"`
	OriginalWordCount   int    `json:"original_word_count"`
	ReducedWordCount    int    `json:"reduced_word_count"`
	ReductionPercentage int    `json:"reduction_percentage"`
	Meta                Meta   `json:"-"`
}

// Reduce shortens text, reporting the achieved reduction percentage.
func (s *Service) Reduce(ctx context.Context, text string, targetReduction int) (*ReduceResult, error) {
	c, err := s.invoker.Complete(ctx, prompt.Reduce(text, targetReduction), false)
	if err != nil {
		return nil, err
	}

	var out struct {
		ReducedText string `json:"reduced_text"`
	}
	degraded := !llm.ExtractInto(c.Text, &out) || out.ReducedText == ""
	if degraded {
		out.ReducedText = llm.StripThinkTags(c.Text)
	}

	orig := WordCount(text)
	reduced := WordCount(out.ReducedText)
	return &ReduceResult{
		ReducedText:         out.ReducedText,
		OriginalWordCount:   orig,
		ReducedWordCount:    reduced,
		ReductionPercentage: ReductionPercentage(orig, reduced),
		Meta:                metaFrom(c, degraded),
	}, nil
}

// BrainstormResult is the brainstorm endpoint payload.
type BrainstormResult struct {
	Ideas []string `json:"ideas"`
	Meta  Meta     `json:"-"`
}

// Brainstorm produces count response ideas for a tender question.
func (s *Service) Brainstorm(ctx context.Context, question, sector string, count int) (*BrainstormResult, error) {
	c, err := s.invoker.Complete(ctx, prompt.Brainstorm(question, sector, count), true)
	if err != nil {
		return nil, err
	}

	var ideas []string
	degraded := !llm.ExtractInto(c.Text, &ideas) || len(ideas) == 0
	if degraded {
		ideas = splitIdeas(c.Text)
	}
	if len(ideas) > count {
		ideas = ideas[:count]
	}
	return &BrainstormResult{Ideas: ideas, Meta: metaFrom(c, degraded)}, nil
}

// CaseStudyResult is the case-study insertion endpoint payload.
type CaseStudyResult struct {
	UpdatedText string `json:"updated_text"`
	CaseStudy   Study  `json:"case_study"`
	Meta        Meta   `json:"-"`
}

// InsertCaseStudy locates case-study material (answer bank first, then web
// research) and asks the model to weave it into the section text.
func (s *Service) InsertCaseStudy(ctx context.Context, text, sector, position string) (*CaseStudyResult, error) {
	study := s.findStudy(ctx, text, sector)

	material := "No source material is available. Invent a realistic, clearly " +
		"illustrative example and mark it as illustrative."
	if study != nil {
		material = study.Title + ": " + study.Summary
	}

	c, err := s.invoker.Complete(ctx, prompt.CaseStudy(text, sector, material, position), true)
	if err != nil {
		return nil, err
	}

	var out struct {
		UpdatedText string `json:"updated_text"`
		CaseStudy   Study  `json:"case_study"`
	}
	degraded := !llm.ExtractInto(c.Text, &out) || out.UpdatedText == ""
	if degraded {
		out.UpdatedText = llm.StripThinkTags(c.Text)
	}
	if study != nil {
		// Keep the sourced title/origin over whatever the model echoed back.
		out.CaseStudy.Title = study.Title
		out.CaseStudy.Origin = study.Origin
		if out.CaseStudy.Summary == "" {
			out.CaseStudy.Summary = study.Summary
		}
	}
	return &CaseStudyResult{
		UpdatedText: out.UpdatedText,
		CaseStudy:   out.CaseStudy,
		Meta:        metaFrom(c, degraded),
	}, nil
}

func (s *Service) findStudy(ctx context.Context, topic, sector string) *Study {
	for _, src := range s.sources {
		study, err := src.FindStudy(ctx, topic, sector)
		if err != nil {
			// Source failures degrade to the next source; the operation
			// itself must not fail because research was unavailable.
			s.logger.Warn("case-study source failed", zap.Error(err))
			continue
		}
		if study != nil {
			return study
		}
	}
	return nil
}

// SummariseResult is the summarise endpoint payload.
type SummariseResult struct {
	Summary   string `json:"summary"`
	WordCount int    `json:"word_count"`
	Meta      Meta   `json:"-"`
}

// Summarise condenses text to at most maxWords words.
func (s *Service) Summarise(ctx context.Context, text string, maxWords int) (*SummariseResult, error) {
	c, err := s.invoker.Complete(ctx, prompt.Summarise(text, maxWords), false)
	if err != nil {
		return nil, err
	}

	var out struct {
		Summary string `json:"summary"`
	}
	degraded := !llm.ExtractInto(c.Text, &out) || out.Summary == ""
	if degraded {
		out.Summary = llm.StripThinkTags(c.Text)
	}
	return &SummariseResult{
		Summary:   out.Summary,
		WordCount: WordCount(out.Summary),
		Meta:      metaFrom(c, degraded),
	}, nil
}

// splitIdeas recovers a best-effort idea list from prose output: one idea per
// non-empty line, bullets and numbering stripped.
func splitIdeas(text string) []string {
	var ideas []string
	for _, line := range strings.Split(llm.StripThinkTags(text), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		if line != "" {
			ideas = append(ideas, line)
		}
	}
	return ideas
}
