package http

import (
	"net/http"

	"tesoreria/internal/core"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	active, err := ParseBoolParam(q, "isActive")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	page, err := ParsePageRequest(q)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	p, err := s.svc.Accounts.ListAccounts(r.Context(), core.AccountFilter{IsActive: active, PageRequest: page})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	Page(NewResponse(), p).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in core.AccountInput
	if err := DecodeJSON(r, &in, accountAliases); err != nil {
		WriteError(w, r, err)
		return
	}
	a, err := s.svc.Accounts.CreateAccount(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteCreated(w, a)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	a, err := s.svc.Accounts.GetAccount(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, a)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var in core.AccountInput
	if err := DecodeJSON(r, &in, accountAliases); err != nil {
		WriteError(w, r, err)
		return
	}
	a, err := s.svc.Accounts.UpdateAccount(r.Context(), id, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, a)
}
