// Package prompt builds the instruction messages sent to the language-model
// providers. Builders are pure: same parameters, same messages.
package prompt

import (
	"fmt"

	"github.com/caredraft/internal/llm"
	"github.com/valyala/bytebufferpool"
)

// system is the shared drafting persona. Every operation-specific user prompt
// rides on top of it.
const system = "You are an expert bid writer for UK care-sector tender proposals. " +
	"You write in British English, in a professional, evidence-led tone appropriate " +
	"for local authority and NHS commissioners. Follow the output format instructions " +
	"exactly and output JSON only, with no surrounding commentary."

// Rephrase asks for a rewrite of text in the requested tone.
func Rephrase(text, tone string) []llm.Message {
	b := bytebufferpool.Get()
	defer bytebufferpool.Put(b)

	fmt.Fprintf(b, "Rephrase the following tender response text in a %s tone, ", tone)
	b.WriteString("preserving every factual claim and commitment.\n\nText:\n")
	b.WriteString(text)
	b.WriteString("\n\nRespond with a JSON object: {\"rephrased_text\": string, \"tone\": string}.")
	return messages(b.String())
}

// Translate asks for a translation into targetLanguage.
func Translate(text, targetLanguage string) []llm.Message {
	b := bytebufferpool.Get()
	defer bytebufferpool.Put(b)

	fmt.Fprintf(b, "Translate the following tender response text into %s. ", targetLanguage)
	b.WriteString("Keep sector terminology (CQC, safeguarding, care plan) accurate.\n\nText:\n")
	b.WriteString(text)
	fmt.Fprintf(b, "\n\nRespond with a JSON object: {\"translated_text\": string, \"target_language\": %q}.", targetLanguage)
	return messages(b.String())
}

// Reduce asks for a shortened version of text. targetReduction is a
// percentage; zero means "as short as possible without losing substance".
func Reduce(text string, targetReduction int) []llm.Message {
	b := bytebufferpool.Get()
	defer bytebufferpool.Put(b)

	if targetReduction > 0 {
		fmt.Fprintf(b, "Reduce the word count of the following tender response text by roughly %d%%, ", targetReduction)
	} else {
		b.WriteString("Reduce the word count of the following tender response text as far as possible, ")
	}
	b.WriteString("keeping every commitment, statistic and compliance statement.\n\nText:\n")
	b.WriteString(text)
	b.WriteString("\n\nRespond with a JSON object: {\"reduced_text\": string}.")
	return messages(b.String())
}

// CaseStudy asks the model to weave the supplied case study into the section
// text at the requested position ("start", "middle", "end" or "" for best fit).
func CaseStudy(text, sector, study, position string) []llm.Message {
	b := bytebufferpool.Get()
	defer bytebufferpool.Put(b)

	fmt.Fprintf(b, "Insert the case study below into the following %s tender response section", sector)
	if position != "" {
		fmt.Fprintf(b, ", positioned at the %s of the section", position)
	}
	b.WriteString(". Blend it naturally; do not label it as a case study.\n\nSection:\n")
	b.WriteString(text)
	b.WriteString("\n\nCase study:\n")
	b.WriteString(study)
	b.WriteString("\n\nRespond with a JSON object: {\"updated_text\": string, " +
		"\"case_study\": {\"title\": string, \"summary\": string}}.")
	return messages(b.String())
}

// Brainstorm asks for count response ideas for a question in the given sector.
func Brainstorm(context, sector string, count int) []llm.Message {
	b := bytebufferpool.Get()
	defer bytebufferpool.Put(b)

	fmt.Fprintf(b, "Brainstorm %d distinct ideas for answering the following %s tender question. ", count, sector)
	b.WriteString("Each idea should be a single sentence a bid writer can expand.\n\nQuestion:\n")
	b.WriteString(context)
	b.WriteString("\n\nRespond with a JSON array of strings.")
	return messages(b.String())
}

// Summarise asks for a summary of text within maxWords words.
func Summarise(text string, maxWords int) []llm.Message {
	b := bytebufferpool.Get()
	defer bytebufferpool.Put(b)

	fmt.Fprintf(b, "Summarise the following tender response text in at most %d words.\n\nText:\n", maxWords)
	b.WriteString(text)
	b.WriteString("\n\nRespond with a JSON object: {\"summary\": string}.")
	return messages(b.String())
}

func messages(user string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}
