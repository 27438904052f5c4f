package httpapi

import (
	"net/http"
	"time"

	"github.com/caredraft/internal/audit"
	"github.com/caredraft/internal/jsonx"
	"github.com/caredraft/internal/supabase"
	"go.uber.org/zap"
)

// decodeAndValidate reads a bounded JSON body into req and runs the
// validation tags. A malformed body or a failed tag short-circuits the
// handler before any provider is called.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := jsonx.DecodeLimit(r.Body, s.maxBodyBytes, req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: "Request body must be valid JSON",
			Type:  "VALIDATION",
		})
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, s.logger, err)
		return false
	}
	return true
}

// auditAI records the outcome of an AI operation.
func (s *Server) auditAI(r *http.Request, operation string, start time.Time, err error) {
	s.trail.Record(audit.Event{
		EventType: audit.EventAIRequest,
		UserID:    supabase.UserID(r.Context()),
		Operation: operation,
		Outcome:   outcomeOf(err),
		IPAddress: clientIP(r),
		Duration:  time.Since(start).Milliseconds(),
	})
}

// aiResponse wraps an operation payload with its invocation metadata.
func aiResponse(payload interface{}, meta interface{}) map[string]interface{} {
	return map[string]interface{}{"success": true, "data": payload, "meta": meta}
}

func (s *Server) handleRephrase(w http.ResponseWriter, r *http.Request) {
	var req rephraseRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Tone == "" {
		req.Tone = "professional"
	}

	start := time.Now()
	res, err := s.drafting.Rephrase(r.Context(), req.Text, req.Tone)
	s.auditAI(r, "rephrase", start, err)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, aiResponse(res, res.Meta))
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	start := time.Now()
	res, err := s.drafting.Translate(r.Context(), req.Text, req.TargetLanguage)
	s.auditAI(r, "translate", start, err)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, aiResponse(res, res.Meta))
}

func (s *Server) handleReduce(w http.ResponseWriter, r *http.Request) {
	var req reduceRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.TargetReduction == 0 {
		req.TargetReduction = 30
	}

	start := time.Now()
	res, err := s.drafting.Reduce(r.Context(), req.Text, req.TargetReduction)
	s.auditAI(r, "reduce", start, err)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, aiResponse(res, res.Meta))
}

func (s *Server) handleBrainstorm(w http.ResponseWriter, r *http.Request) {
	var req brainstormRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Count == 0 {
		req.Count = 5
	}

	start := time.Now()
	res, err := s.drafting.Brainstorm(r.Context(), req.Context, req.Sector, req.Count)
	s.auditAI(r, "brainstorm", start, err)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, aiResponse(res, res.Meta))
}

func (s *Server) handleCaseStudy(w http.ResponseWriter, r *http.Request) {
	var req caseStudyRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Position == "" {
		req.Position = "end"
	}

	start := time.Now()
	res, err := s.drafting.InsertCaseStudy(r.Context(), req.Text, req.Sector, req.Position)
	s.auditAI(r, "casestudy", start, err)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, aiResponse(res, res.Meta))
}

func (s *Server) handleSummarise(w http.ResponseWriter, r *http.Request) {
	var req summariseRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.MaxWords == 0 {
		req.MaxWords = 150
	}

	start := time.Now()
	res, err := s.drafting.Summarise(r.Context(), req.Text, req.MaxWords)
	s.auditAI(r, "summarise", start, err)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, aiResponse(res, res.Meta))
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.NumResults == 0 {
		req.NumResults = 5
	}
	query := req.Query
	if req.Sector != "" {
		query = req.Sector + " " + query
	}

	start := time.Now()
	results, err := s.search.Search(r.Context(), query, req.NumResults)
	s.trail.Record(audit.Event{
		EventType: audit.EventResearch,
		UserID:    supabase.UserID(r.Context()),
		Operation: "research",
		Outcome:   outcomeOf(err),
		IPAddress: clientIP(r),
		Duration:  time.Since(start).Milliseconds(),
	})
	if err != nil {
		s.logger.Warn("research failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error: "Research provider is temporarily unavailable",
			Type:  "UNAVAILABLE",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "results": results})
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
