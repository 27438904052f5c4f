package httpapi

// Request DTOs for the AI and research endpoints. Validation tags are
// enforced before any provider call is made.

type rephraseRequest struct {
	Text string `json:"text" validate:"required,min=1,max=20000"`
	Tone string `json:"tone" validate:"omitempty,oneof=professional friendly persuasive concise formal"`
}

type translateRequest struct {
	Text           string `json:"text" validate:"required,min=1,max=20000"`
	TargetLanguage string `json:"target_language" validate:"required,min=2,max=40"`
}

type reduceRequest struct {
	Text            string `json:"text" validate:"required,min=1,max=20000"`
	TargetReduction int    `json:"target_reduction" validate:"omitempty,min=5,max=90"`
}

type brainstormRequest struct {
	Context string `json:"context" validate:"required,min=1,max=20000"`
	Sector  string `json:"sector" validate:"omitempty,max=100"`
	Count   int    `json:"count" validate:"omitempty,min=1,max=10"`
}

type caseStudyRequest struct {
	Text     string `json:"text" validate:"required,min=1,max=20000"`
	Sector   string `json:"sector" validate:"omitempty,max=100"`
	Position string `json:"position" validate:"omitempty,oneof=start middle end"`
}

type summariseRequest struct {
	Text     string `json:"text" validate:"required,min=1,max=40000"`
	MaxWords int    `json:"max_words" validate:"omitempty,min=20,max=1000"`
}

type researchRequest struct {
	Query      string `json:"query" validate:"required,min=2,max=500"`
	Sector     string `json:"sector" validate:"omitempty,max=100"`
	NumResults int    `json:"num_results" validate:"omitempty,min=1,max=10"`
}
