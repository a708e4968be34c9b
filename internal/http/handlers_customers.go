package http

import (
	"net/http"
)

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Customers.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, "list_customers", err)
		return
	}
	out := make([]customerResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCustomerResponse(c))
	}
	NewJSONResponse().Data(map[string][]customerResponse{"items": out}).Write(w)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c, err := s.svc.Customers.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get_customer", err)
		return
	}
	NewJSONResponse().Data(toCustomerResponse(c)).Write(w)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c, err := s.svc.Customers.Add(r.Context(), req.toCustomer(0))
	if err != nil {
		s.fail(w, r, "create_customer", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(toCustomerResponse(c)).Write(w)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c, err := s.svc.Customers.Update(r.Context(), req.toCustomer(id))
	if err != nil {
		s.fail(w, r, "update_customer", err)
		return
	}
	NewJSONResponse().Data(toCustomerResponse(c)).Write(w)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.svc.Customers.Delete(r.Context(), id); err != nil {
		s.fail(w, r, "delete_customer", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
