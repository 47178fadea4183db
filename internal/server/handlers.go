package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jonathan/grade-explorer/internal/engine"
	"github.com/jonathan/grade-explorer/internal/pipeline"
	"github.com/jonathan/grade-explorer/internal/ranking"
	"github.com/jonathan/grade-explorer/internal/session"
	"github.com/jonathan/grade-explorer/internal/types"
)

const healthTimeout = 2 * time.Second

// maxBodyBytes bounds request bodies; view requests carry a whole snapshot.
const maxBodyBytes = 8 << 20

// ViewRequest applies a sequence of session actions to a snapshot. Actions
// run in field order: query, refinements, sort, threshold, page size, page
// and selection.
type ViewRequest struct {
	Snapshot    []byte              `json:"snapshot"`
	Query       string              `json:"query,omitempty" validate:"omitempty,max=500"`
	ParserMode  string              `json:"parser_mode,omitempty" validate:"omitempty,oneof=rule-based llm auto"`
	Term        string              `json:"term,omitempty" validate:"omitempty,term_label"`
	Refinements *engine.Refinements `json:"refinements,omitempty"`
	Sort        string              `json:"sort,omitempty"`
	Desc        *bool               `json:"desc,omitempty"`
	Threshold   string              `json:"threshold,omitempty"`
	PageSize    int                 `json:"page_size,omitempty" validate:"omitempty,min=1"`
	Page        int                 `json:"page,omitempty" validate:"omitempty,min=1"`
	Select      []int64             `json:"select,omitempty"`
}

// ViewResponse is the rendered page and the snapshot to send back next time.
type ViewResponse struct {
	Page     session.Display      `json:"page"`
	Results  *types.QueryResponse `json:"results,omitempty"`
	Snapshot []byte               `json:"snapshot"`
	Warnings []string             `json:"warnings,omitempty"`
}

// CompareRequest names the sections to compare, either directly or as the
// selection stored in a snapshot.
type CompareRequest struct {
	Sections []types.Section `json:"sections"`
	Snapshot []byte          `json:"snapshot,omitempty"`
}

// handleHealth reports liveness and whether the section source answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	dbOK := true
	if err := s.backend.Ping(ctx); err != nil {
		log.Printf("health check: source ping failed: %v", err)
		dbOK = false
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"status": "ok", "db_ok": dbOK})
}

// handleQuery runs one query. Query failures are reported in the body with
// ok=false; only malformed requests get a non-200 status.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req types.QueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp := s.backend.Run(r.Context(), pipeline.Request{Query: req.Query, ParserMode: req.ParserMode, Term: req.Term})
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleQueryStream runs one query and streams its progress via SSE.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	var req types.QueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	stream, err := newProgressStream(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := s.backend.RunWithProgress(r.Context(), pipeline.Request{Query: req.Query, ParserMode: req.ParserMode, Term: req.Term},
		func(event pipeline.ProgressEvent) {
			if err := stream.Step(event); err != nil {
				log.Printf("Error writing progress event: %v", err)
			}
		})
	if err := stream.Complete(resp); err != nil {
		log.Printf("Error writing progress event: %v", err)
	}
}

// handleSubjects lists the known subjects.
func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.backend.Subjects(r.Context())
	if err != nil {
		log.Printf("failed to list subjects: %v", err)
		s.errorResponse(w, HTTPStatus(err), "failed to list subjects")
		return
	}
	if subjects == nil {
		subjects = []types.Subject{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"subjects": subjects})
}

// handleView restores a snapshot, applies the requested actions and returns
// the rendered page with the updated snapshot.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if !s.decode(w, r, &req) {
		return
	}

	snap, warnings := restore(req.Snapshot)
	ctrl := session.NewController(s.backend, snap)

	var results *types.QueryResponse
	if err := applyView(r.Context(), ctrl, &req, &results); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	blob, err := session.Marshal(ctrl.Snapshot())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, ViewResponse{
		Page:     ctrl.Page(),
		Results:  results,
		Snapshot: blob,
		Warnings: warnings,
	})
}

func applyView(ctx context.Context, ctrl *session.Controller, req *ViewRequest, results **types.QueryResponse) error {
	if req.ParserMode != "" {
		if err := ctrl.SetParserMode(req.ParserMode); err != nil {
			return &ErrValidation{Field: "parser_mode", Message: err.Error()}
		}
	}
	ctrl.SetTerm(req.Term)
	if req.Query != "" {
		resp, err := ctrl.Submit(ctx, req.Query)
		if err != nil {
			return err
		}
		*results = resp
	}
	if req.Refinements != nil {
		ctrl.Refine(*req.Refinements)
	}
	if req.Sort != "" || req.Desc != nil {
		view := ctrl.Snapshot().View
		key, desc := view.Sort, view.Desc
		if req.Sort != "" {
			key = req.Sort
		}
		if req.Desc != nil {
			desc = *req.Desc
		}
		if err := ctrl.SetSort(key, desc); err != nil {
			return err
		}
	}
	if req.Threshold != "" {
		if err := ctrl.SetThreshold(req.Threshold); err != nil {
			return err
		}
	}
	if req.PageSize > 0 {
		if err := ctrl.SetPageSize(req.PageSize); err != nil {
			return err
		}
	}
	if req.Page > 0 {
		if err := ctrl.SetPage(req.Page); err != nil {
			return err
		}
	}
	if req.Select != nil {
		ctrl.Select(req.Select)
	}
	return nil
}

// handleCompare compares two or more sections. Fewer than two yields 422
// with state "insufficient".
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !s.decode(w, r, &req) {
		return
	}

	var (
		cmp *ranking.Comparison
		err error
	)
	if len(req.Sections) == 0 && len(req.Snapshot) > 0 {
		snap, _ := restore(req.Snapshot)
		cmp, err = session.NewController(nil, snap).Compare()
	} else {
		cmp, err = ranking.Compare(req.Sections)
	}

	var insufficient *ranking.InsufficientSectionsError
	if errors.As(err, &insufficient) {
		s.jsonResponse(w, http.StatusUnprocessableEntity, map[string]any{
			"state": "insufficient",
			"error": err.Error(),
		})
		return
	}
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, cmp)
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validateRequest(dst); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return false
	}
	return true
}

// restore starts a new session for an empty blob.
func restore(blob []byte) (*session.Snapshot, []string) {
	if len(blob) == 0 {
		return session.New(), nil
	}
	return session.Restore(blob)
}
