package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

// SummaryResponse carries the derived monthly aggregates.
type SummaryResponse struct {
	Summary model.Summary `json:"summary"`
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SummaryResponse{Summary: s.ledger.Summary()})
}

func (s *Server) listIncomes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"incomes": s.ledger.Incomes()})
}

func (s *Server) listExpenses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"expenses": s.ledger.Expenses()})
}

func (s *Server) createIncome(w http.ResponseWriter, r *http.Request) {
	var draft model.DraftIncome
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	income, err := s.ledger.AddIncome(draft)
	if err != nil {
		s.writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"income": income})
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	var draft model.DraftExpense
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	expense, err := s.ledger.AddExpense(draft)
	if err != nil {
		s.writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"expense": expense})
}

// updateIncome answers 204 for an unknown id: stale references from the
// UI are not errors.
func (s *Server) updateIncome(w http.ResponseWriter, r *http.Request) {
	var patch model.IncomePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	id := chi.URLParam(r, "id")
	found, err := s.ledger.UpdateIncome(id, patch)
	if err != nil {
		s.writeMutationError(w, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	for _, inc := range s.ledger.Incomes() {
		if inc.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"income": inc})
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateExpense(w http.ResponseWriter, r *http.Request) {
	var patch model.ExpensePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	id := chi.URLParam(r, "id")
	found, err := s.ledger.UpdateExpense(id, patch)
	if err != nil {
		s.writeMutationError(w, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	for _, exp := range s.ledger.Expenses() {
		if exp.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"expense": exp})
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteIncome(w http.ResponseWriter, r *http.Request) {
	s.ledger.DeleteIncome(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	s.ledger.DeleteExpense(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeMutationError(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrInvalidInput) {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	s.logger.Error("ledger mutation failed", "error", err)
	writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to update ledger")
}
