package http

import (
	"net/http"

	"tesoreria/internal/core"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ParsePageRequest(q)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	p, err := s.svc.Budgets.ListBudgets(r.Context(), core.BudgetFilter{
		Status:      core.BudgetStatus(q.Get("status")),
		Search:      SearchParam(q),
		PageRequest: page,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	Page(NewResponse(), p).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in core.BudgetInput
	if err := DecodeJSON(r, &in, budgetAliases); err != nil {
		WriteError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.CreateBudget(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteCreated(w, b)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.GetBudget(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, b)
}

// handleUpdateBudget ignores any spent value in the body; spent only moves
// through spend, transaction edits and reconciliation.
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var in core.BudgetInput
	if err := DecodeJSON(r, &in, budgetAliases); err != nil {
		WriteError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.UpdateBudget(r.Context(), id, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.svc.Budgets.DeleteBudget(r.Context(), id); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteMessage(w, "budget deleted")
}

func (s *Server) handleSpendFromBudget(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var in core.SpendInput
	if err := DecodeJSON(r, &in, spendAliases); err != nil {
		WriteError(w, r, err)
		return
	}
	res, err := s.svc.Budgets.SpendFromBudget(r.Context(), id, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).Data(res).Write(w)
}

func (s *Server) handleReconcileBudget(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	rec, err := s.svc.Budgets.ReconcileBudget(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	msg := "budget already reconciled"
	if rec.Changed {
		msg = "budget spent corrected"
	}
	NewResponse().Data(rec).Message(msg).Write(w)
}
