package handler

import (
	"aquacare/internal/api/handler/dto"
	"aquacare/internal/domain/customer"
	"aquacare/internal/pkg/apperrors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type CustomerHandler struct {
	store  customer.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewCustomerHandler(s customer.Store, l *slog.Logger) *CustomerHandler {
	if s == nil {
		panic("customer store cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &CustomerHandler{
		store:  s,
		logger: l.With("component", "CustomerHandler"),
		now:    today,
	}
}

// today is the calendar date every status is derived against.
func today() time.Time {
	return customer.TruncateDate(time.Now())
}

// ListCustomers handles GET /customers
// @Summary List customers
// @Description Returns the caller's customers, newest first. The optional q parameter filters on name, phone, address or model.
// @Tags Customers
// @Produce json
// @Param q query string false "Search text"
// @Success 200 {object} dto.CustomerListResponse
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /customers [get]
// @Security BearerAuth
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list customers", "error", err)
		respondError(w, err)
		return
	}

	list := customer.Filter(snap.Customers, r.URL.Query().Get("q"))
	respondJSON(w, http.StatusOK, dto.NewCustomerListResponse(snap, list, h.now()))
}

// CreateCustomer handles POST /customers
// @Summary Create a new customer
// @Description Registers a customer with their purifier model and AMC contract.
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body dto.CreateCustomerRequest true "Customer creation request"
// @Success 201 {object} dto.CustomerResponse "Customer successfully created"
// @Failure 400 {object} dto.ErrorResponse "Missing or malformed fields"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /customers [post]
// @Security BearerAuth
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received create customer request")

	var req dto.CreateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode create customer request", "error", err)
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.logger.WarnContext(r.Context(), "Invalid create customer request", "error", err)
		respondError(w, err)
		return
	}

	created, err := h.store.CreateCustomer(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Customer created", "customer_id", created.ID)
	respondJSON(w, http.StatusCreated, dto.NewCustomerResponse(created, h.now(), true))
}

// GetCustomer handles GET /customers/{customerID}
// @Summary Get customer details
// @Description Returns one customer with its numbered service visits.
// @Tags Customers
// @Produce json
// @Param customerID path string true "Customer ID"
// @Success 200 {object} dto.CustomerResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /customers/{customerID} [get]
// @Security BearerAuth
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := getCustomerIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	c, err := h.store.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(c, h.now(), true))
}

// UpdateCustomer handles PATCH /customers/{customerID}
// @Summary Update a customer
// @Description Applies a partial update. Service visits are never changed here.
// @Tags Customers
// @Accept json
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param request body dto.UpdateCustomerRequest true "Fields to change"
// @Success 200 {object} dto.CustomerResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /customers/{customerID} [patch]
// @Security BearerAuth
func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := getCustomerIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.UpdateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.store.UpdateCustomer(r.Context(), id, patch)
	if err != nil {
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Customer updated", "customer_id", id)
	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(updated, h.now(), true))
}

// DeleteCustomer handles DELETE /customers/{customerID}
// @Summary Delete a customer
// @Description Removes the customer together with its service visits.
// @Tags Customers
// @Param customerID path string true "Customer ID"
// @Success 204 "Deleted"
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /customers/{customerID} [delete]
// @Security BearerAuth
func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := getCustomerIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.store.DeleteCustomer(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Customer deleted", "customer_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// AddServiceVisit handles POST /customers/{customerID}/visits
// @Summary Record a service visit
// @Tags Customers
// @Accept json
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param request body dto.AddVisitRequest true "Visit details"
// @Success 201 {object} dto.ServiceVisitResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /customers/{customerID}/visits [post]
// @Security BearerAuth
func (h *CustomerHandler) AddServiceVisit(w http.ResponseWriter, r *http.Request) {
	id, err := getCustomerIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.AddVisitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	in, err := req.ToInput()
	if err != nil {
		respondError(w, err)
		return
	}

	visit, err := h.store.AddServiceVisit(r.Context(), id, in)
	if err != nil {
		respondError(w, err)
		return
	}

	number := 1
	if c, err := h.store.Get(r.Context(), id); err == nil {
		for i, v := range c.ServiceVisits {
			if v.ID == visit.ID {
				number = i + 1
				break
			}
		}
	}

	h.logger.InfoContext(r.Context(), "Service visit recorded", "customer_id", id, "visit_id", visit.ID)
	respondJSON(w, http.StatusCreated, dto.NewServiceVisitResponse(number, visit))
}

// ListExpiring handles GET /customers/expiring
// @Summary Contracts expiring soon
// @Description Customers whose contract ends within the next 30 days, soonest first.
// @Tags Customers
// @Produce json
// @Success 200 {array} dto.CustomerResponse
// @Router /customers/expiring [get]
// @Security BearerAuth
func (h *CustomerHandler) ListExpiring(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	list, err := h.store.ExpiringSoon(r.Context(), now)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewCustomerResponses(list, now))
}

// ListExpired handles GET /customers/expired
// @Summary Expired contracts
// @Tags Customers
// @Produce json
// @Success 200 {array} dto.CustomerResponse
// @Router /customers/expired [get]
// @Security BearerAuth
func (h *CustomerHandler) ListExpired(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	list, err := h.store.Expired(r.Context(), now)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewCustomerResponses(list, now))
}

// RefreshCustomers handles POST /customers/refresh
// @Summary Re-fetch customers from storage
// @Tags Customers
// @Produce json
// @Success 200 {object} dto.CustomerListResponse
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /customers/refresh [post]
// @Security BearerAuth
func (h *CustomerHandler) RefreshCustomers(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Refresh(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Refresh failed", "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewCustomerListResponse(snap, snap.Customers, h.now()))
}

// Dashboard handles GET /dashboard
// @Summary Dashboard counters
// @Description Totals of customers and visits plus expiring and expired contract counts.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.DashboardResponse
// @Router /dashboard [get]
// @Security BearerAuth
func (h *CustomerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	stats, err := h.store.Stats(r.Context(), now)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.DashboardResponse{Stats: stats, AsOf: now.Format(customer.DateLayout)})
}
