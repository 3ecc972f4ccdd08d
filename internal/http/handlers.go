package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ryuko2/dinerito/internal/export"
	"github.com/Ryuko2/dinerito/internal/log"
	"github.com/Ryuko2/dinerito/internal/project"
	"github.com/Ryuko2/dinerito/internal/remote"
	"github.com/Ryuko2/dinerito/internal/sync"
)

// maxBodyBytes bounds request bodies; bundles from years of use stay
// well under this.
const maxBodyBytes = 8 << 20

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready once every collection has either gone live
// or degraded onto its cached snapshot. Both serve data; only a manager
// still initializing means the API has nothing to show yet.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	for _, m := range s.managers.All() {
		if m.State() == sync.StateInitializing || m.State() == sync.StateSubscribing {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "initializing", "collection": m.Name(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type collectionStatus struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string]collectionStatus)
	for _, m := range s.managers.All() {
		st := collectionStatus{State: string(m.State())}
		if err := m.Err(); err != nil {
			st.Error = err.Error()
		}
		out[m.Name()] = st
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) manager(w http.ResponseWriter, r *http.Request) sync.Syncer {
	name := chi.URLParam(r, "collection")
	m := s.managers.ByName(name)
	if m == nil {
		respondError(w, http.StatusNotFound, "unknown collection: "+name)
	}
	return m
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	m := s.manager(w, r)
	if m == nil {
		return
	}
	respondJSON(w, http.StatusOK, m.View())
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	m := s.manager(w, r)
	if m == nil {
		return
	}
	var doc remote.Document
	if err := decodeBody(r, &doc); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := m.Add(r.Context(), doc)
	if err != nil {
		s.respondWriteError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type patchRequest struct {
	Set    remote.Document `json:"set"`
	Delete []string        `json:"delete"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	m := s.manager(w, r)
	if m == nil {
		return
	}
	var req patchRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Set) == 0 && len(req.Delete) == 0 {
		respondError(w, http.StatusBadRequest, "patch needs a set object or a delete list")
		return
	}
	if err := m.Update(r.Context(), chi.URLParam(r, "id"), req.Set, req.Delete); err != nil {
		s.respondWriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	m := s.manager(w, r)
	if m == nil {
		return
	}
	if err := m.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondWriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetProjections(w http.ResponseWriter, _ *http.Request) {
	out := project.Budgets(s.managers.Budgets.Snapshot(), s.managers.Expenses.Snapshot(), s.now())
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGoalProjections(w http.ResponseWriter, _ *http.Request) {
	out := project.Goals(
		s.managers.Goals.Snapshot(),
		s.managers.Incomes.Snapshot(),
		s.managers.Expenses.Snapshot(),
		s.managers.Recurring.Snapshot(),
		s.now(),
	)
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleRatio(w http.ResponseWriter, _ *http.Request) {
	expenses := s.managers.Expenses.Snapshot()
	incomes := s.managers.Incomes.Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"total":    project.SpendingRatio(expenses, incomes),
		"byPerson": project.SpendingRatioByPerson(expenses, incomes),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	bundle := export.Snapshot(
		s.managers.Expenses.Snapshot(),
		s.managers.Goals.Snapshot(),
		s.managers.Incomes.Snapshot(),
		s.managers.Budgets.Snapshot(),
		s.now(),
	)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="dinerito-export.json"`)
	if err := bundle.Write(w); err != nil {
		s.logger.Warn("export write failed", log.FieldError, err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	bundle, err := export.Parse(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	counts, err := export.Import(r.Context(), bundle, s.managers.Targets(), s.logger)
	if err != nil {
		s.respondWriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"imported": counts})
}

// respondWriteError maps a failed remote mutation onto a status code.
// Write failures are surfaced to the caller as-is, never retried here.
func (s *Server) respondWriteError(w http.ResponseWriter, err error) {
	var we *remote.WriteError
	if errors.As(err, &we) {
		respondError(w, http.StatusBadGateway, we.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
