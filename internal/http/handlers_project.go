package http

import (
	"net/http"

	"tesoreria/internal/core"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ParsePageRequest(q)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	p, err := s.svc.Projects.ListProjects(r.Context(), core.ProjectFilter{Search: SearchParam(q), PageRequest: page})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	Page(NewResponse(), p).Write(w)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in core.ProjectInput
	if err := DecodeJSON(r, &in, projectAliases); err != nil {
		WriteError(w, r, err)
		return
	}
	p, err := s.svc.Projects.CreateProject(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteCreated(w, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	p, err := s.svc.Projects.GetProject(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, p)
}

func (s *Server) handleListExpensesOfProject(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	page, err := ParsePageRequest(r.URL.Query())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	p, err := s.svc.ProjectExpenses.ListProjectExpensesByProject(r.Context(), id, page)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	Page(NewResponse(), p).Write(w)
}

func (s *Server) handleListProjectExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ParsePageRequest(q)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	f := core.ProjectExpenseFilter{
		Category:    core.ProjectExpenseCategory(q.Get("category")),
		Search:      SearchParam(q),
		PageRequest: page,
	}
	if q.Get("projectId") != "" {
		n, err := intParam(q, "projectId")
		if err != nil {
			WriteError(w, r, err)
			return
		}
		f.ProjectID = int64(n)
	}
	p, err := s.svc.ProjectExpenses.ListProjectExpenses(r.Context(), f)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	Page(NewResponse(), p).Write(w)
}

func (s *Server) handleCreateProjectExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ProjectExpenseInput
	if err := DecodeJSON(r, &in, projectExpenseAliases); err != nil {
		WriteError(w, r, err)
		return
	}
	e, err := s.svc.ProjectExpenses.CreateProjectExpense(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteCreated(w, e)
}

func (s *Server) handleGetProjectExpense(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	e, err := s.svc.ProjectExpenses.GetProjectExpense(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, e)
}

func (s *Server) handleUpdateProjectExpense(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var in core.ProjectExpenseInput
	if err := DecodeJSON(r, &in, projectExpenseAliases); err != nil {
		WriteError(w, r, err)
		return
	}
	e, err := s.svc.ProjectExpenses.UpdateProjectExpense(r.Context(), id, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, e)
}

func (s *Server) handleDeleteProjectExpense(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.svc.ProjectExpenses.DeleteProjectExpense(r.Context(), id); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteMessage(w, "project expense deleted")
}
