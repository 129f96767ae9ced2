package http

import (
	"net/http"

	"tesoreria/internal/core"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ParsePageRequest(q)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	p, err := s.svc.Transactions.ListTransactions(r.Context(), core.TransactionFilter{
		Type:        core.TransactionType(q.Get("type")),
		Status:      core.Status(q.Get("status")),
		Search:      SearchParam(q),
		PageRequest: page,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	Page(NewResponse(), p).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in core.TransactionInput
	if err := DecodeJSON(r, &in, transactionAliases); err != nil {
		WriteError(w, r, err)
		return
	}
	t, err := s.svc.Transactions.CreateTransaction(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteCreated(w, t)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	t, err := s.svc.Transactions.GetTransaction(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var in core.TransactionInput
	if err := DecodeJSON(r, &in, transactionAliases); err != nil {
		WriteError(w, r, err)
		return
	}
	t, err := s.svc.Transactions.UpdateTransaction(r.Context(), id, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.svc.Transactions.DeleteTransaction(r.Context(), id); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteMessage(w, "transaction deleted")
}
