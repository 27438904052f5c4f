package httpapi

import (
	"net/http"
	"net/url"
	"reflect"

	"github.com/caredraft/internal/audit"
	"github.com/caredraft/internal/jsonx"
	"github.com/caredraft/internal/supabase"
	"github.com/gorilla/mux"
)

// resource describes one proxied Supabase table. Row-level security runs in
// the database; these handlers only forward the caller's session token.
type resource struct {
	table   string
	newRow  func() interface{}
	newList func() interface{}
}

var resources = map[string]resource{
	"organizations": {
		table:   supabase.TableOrganizations,
		newRow:  func() interface{} { return &supabase.Organization{} },
		newList: func() interface{} { return &[]supabase.Organization{} },
	},
	"profiles": {
		table:   supabase.TableProfiles,
		newRow:  func() interface{} { return &supabase.Profile{} },
		newList: func() interface{} { return &[]supabase.Profile{} },
	},
	"proposals": {
		table:   supabase.TableProposals,
		newRow:  func() interface{} { return &supabase.Proposal{} },
		newList: func() interface{} { return &[]supabase.Proposal{} },
	},
	"answers": {
		table:   supabase.TableAnswerBank,
		newRow:  func() interface{} { return &supabase.AnswerItem{} },
		newList: func() interface{} { return &[]supabase.AnswerItem{} },
	},
}

func (s *Server) resourceFor(w http.ResponseWriter, r *http.Request) (resource, bool) {
	name := mux.Vars(r)["resource"]
	res, ok := resources[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Unknown resource"})
	}
	return res, ok
}

// listFilters converts whitelisted query parameters into PostgREST filters.
func listFilters(r *http.Request) url.Values {
	q := url.Values{}
	for _, key := range []string{"organization_id", "status", "sector"} {
		if v := r.URL.Query().Get(key); v != "" {
			q.Set(key, "eq."+v)
		}
	}
	return q
}

func (s *Server) handleListRows(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resourceFor(w, r)
	if !ok {
		return
	}

	list := res.newList()
	token := supabase.SessionToken(r.Context())
	if err := s.store.Select(r.Context(), res.table, listFilters(r), token, list); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetRow(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resourceFor(w, r)
	if !ok {
		return
	}

	list := res.newList()
	token := supabase.SessionToken(r.Context())
	if err := s.store.Select(r.Context(), res.table, supabase.Eq("id", mux.Vars(r)["id"]), token, list); err != nil {
		writeError(w, s.logger, err)
		return
	}

	rows := rowsOf(list)
	if len(rows) == 0 {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Resource not found"})
		return
	}
	writeJSON(w, http.StatusOK, rows[0])
}

func (s *Server) handleCreateRow(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resourceFor(w, r)
	if !ok {
		return
	}

	row := res.newRow()
	if !s.decodeAndValidate(w, r, row) {
		return
	}

	created := res.newList()
	token := supabase.SessionToken(r.Context())
	if err := s.store.Insert(r.Context(), res.table, token, row, created); err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.auditWrite(r, res.table+".create")

	rows := rowsOf(created)
	if len(rows) > 0 {
		writeJSON(w, http.StatusCreated, rows[0])
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resourceFor(w, r)
	if !ok {
		return
	}

	patch := map[string]interface{}{}
	if err := decodePatch(r, s.maxBodyBytes, &patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: "Request body must be valid JSON",
			Type:  "VALIDATION",
		})
		return
	}
	delete(patch, "id") // the key is immutable

	updated := res.newList()
	token := supabase.SessionToken(r.Context())
	if err := s.store.Update(r.Context(), res.table, supabase.Eq("id", mux.Vars(r)["id"]), token, patch, updated); err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.auditWrite(r, res.table+".update")

	rows := rowsOf(updated)
	if len(rows) == 0 {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Resource not found"})
		return
	}
	writeJSON(w, http.StatusOK, rows[0])
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resourceFor(w, r)
	if !ok {
		return
	}

	token := supabase.SessionToken(r.Context())
	if err := s.store.Delete(r.Context(), res.table, supabase.Eq("id", mux.Vars(r)["id"]), token); err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.auditWrite(r, res.table+".delete")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) auditWrite(r *http.Request, operation string) {
	s.trail.Record(audit.Event{
		EventType: audit.EventDataWrite,
		UserID:    supabase.UserID(r.Context()),
		Operation: operation,
		Resource:  mux.Vars(r)["id"],
		Outcome:   "ok",
		IPAddress: clientIP(r),
	})
}

// rowsOf flattens a *[]T row slice into []interface{} for shared single-row
// handling.
func rowsOf(list interface{}) []interface{} {
	v := reflect.ValueOf(list)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Slice {
		return nil
	}
	v = v.Elem()
	out := make([]interface{}, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = v.Index(i).Interface()
	}
	return out
}

func decodePatch(r *http.Request, max int64, patch *map[string]interface{}) error {
	return jsonx.DecodeLimit(r.Body, max, patch)
}
