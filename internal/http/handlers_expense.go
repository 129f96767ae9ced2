package http

import (
	"net/http"

	"tesoreria/internal/core"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ParsePageRequest(q)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	p, err := s.svc.Expenses.ListExpenses(r.Context(), core.ExpenseFilter{
		Status:      core.Status(q.Get("status")),
		Category:    sanitizeInput(q.Get("category")),
		Search:      SearchParam(q),
		PageRequest: page,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	Page(NewResponse(), p).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseInput
	if err := DecodeJSON(r, &in, expenseAliases); err != nil {
		WriteError(w, r, err)
		return
	}
	e, err := s.svc.Expenses.CreateExpense(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteCreated(w, e)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	e, err := s.svc.Expenses.GetExpense(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var in core.ExpenseInput
	if err := DecodeJSON(r, &in, expenseAliases); err != nil {
		WriteError(w, r, err)
		return
	}
	e, err := s.svc.Expenses.UpdateExpense(r.Context(), id, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, e)
}

func (s *Server) handleApproveExpense(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	e, err := s.svc.Expenses.ApproveExpense(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().Data(e).Message("expense approved").Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.svc.Expenses.DeleteExpense(r.Context(), id); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteMessage(w, "expense deleted")
}
