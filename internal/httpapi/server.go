// Package httpapi exposes the platform over HTTP: the AI drafting
// operations, web research, thin CRUD proxies over the Supabase tables and
// the live collaboration socket.
package httpapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/caredraft/internal/audit"
	"github.com/caredraft/internal/collab"
	"github.com/caredraft/internal/drafting"
	"github.com/caredraft/internal/ratelimit"
	"github.com/caredraft/internal/search"
	"github.com/caredraft/internal/supabase"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Store is the subset of the Supabase client the CRUD proxies need.
type Store interface {
	Select(ctx context.Context, table string, query url.Values, bearer string, dst interface{}) error
	Insert(ctx context.Context, table string, bearer string, row, dst interface{}) error
	Update(ctx context.Context, table string, query url.Values, bearer string, patch, dst interface{}) error
	Delete(ctx context.Context, table string, query url.Values, bearer string) error
}

// Searcher runs allow-listed web research queries.
type Searcher interface {
	Search(ctx context.Context, query string, numResults int) ([]search.Result, error)
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Drafting *drafting.Service
	Search   Searcher
	Store    Store
	Verifier *supabase.Verifier
	Limiter  *ratelimit.Limiter
	Trail    *audit.Trail
	Hub      *collab.Hub

	MaxBodyBytes int64
}

// Server holds the handler dependencies.
type Server struct {
	drafting     *drafting.Service
	search       Searcher
	store        Store
	verifier     *supabase.Verifier
	limiter      *ratelimit.Limiter
	trail        *audit.Trail
	hub          *collab.Hub
	validate     *validator.Validate
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewServer creates the HTTP server facade.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 1 << 20
	}
	return &Server{
		drafting:     deps.Drafting,
		search:       deps.Search,
		store:        deps.Store,
		verifier:     deps.Verifier,
		limiter:      deps.Limiter,
		trail:        deps.Trail,
		hub:          deps.Hub,
		validate:     validator.New(),
		maxBodyBytes: deps.MaxBodyBytes,
		logger:       logger.Named("http"),
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverPanics, s.requestLogger)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.verifier.Middleware)

	// AI and research endpoints burn provider budget; they sit behind the
	// per-client throttle.
	ai := api.PathPrefix("/ai").Subrouter()
	ai.Use(s.throttle)
	ai.HandleFunc("/rephrase", s.handleRephrase).Methods(http.MethodPost)
	ai.HandleFunc("/translate", s.handleTranslate).Methods(http.MethodPost)
	ai.HandleFunc("/reduce", s.handleReduce).Methods(http.MethodPost)
	ai.HandleFunc("/brainstorm", s.handleBrainstorm).Methods(http.MethodPost)
	ai.HandleFunc("/casestudy", s.handleCaseStudy).Methods(http.MethodPost)
	ai.HandleFunc("/summarise", s.handleSummarise).Methods(http.MethodPost)

	research := api.PathPrefix("/research").Subrouter()
	research.Use(s.throttle)
	research.HandleFunc("", s.handleResearch).Methods(http.MethodPost)

	api.HandleFunc("/{resource}", s.handleListRows).Methods(http.MethodGet)
	api.HandleFunc("/{resource}", s.handleCreateRow).Methods(http.MethodPost)
	api.HandleFunc("/{resource}/{id}", s.handleGetRow).Methods(http.MethodGet)
	api.HandleFunc("/{resource}/{id}", s.handleUpdateRow).Methods(http.MethodPatch)
	api.HandleFunc("/{resource}/{id}", s.handleDeleteRow).Methods(http.MethodDelete)

	// Browsers cannot set headers on a websocket upgrade; the session token
	// arrives as a query parameter and is lifted into the header the
	// verifier expects.
	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(tokenFromQuery, s.verifier.Middleware)
	ws.HandleFunc("/proposals/{id}", s.handleProposalSocket).Methods(http.MethodGet)

	return r
}

func tokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			if tok := r.URL.Query().Get("token"); tok != "" {
				r.Header.Set("Authorization", "Bearer "+tok)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"tracked_clients": s.limiter.Tracked(),
	})
}

func (s *Server) handleProposalSocket(w http.ResponseWriter, r *http.Request) {
	proposalID := mux.Vars(r)["id"]
	s.hub.Serve(w, r, proposalID, supabase.UserID(r.Context()))
}
