package dto

import (
	"aquacare/internal/domain/customer"
	"aquacare/internal/pkg/apperrors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CreateCustomerRequest struct {
	Name              string           `json:"name"`
	Address           string           `json:"address"`
	Phone             string           `json:"phone"`
	Model             string           `json:"model"`
	ContractType      string           `json:"contractType" example:"full"`
	InstallationDate  string           `json:"installationDate" example:"2024-01-10"`
	ContractStartDate string           `json:"contractStartDate,omitempty" example:"2024-01-10"`
	ContractEndDate   string           `json:"contractEndDate" example:"2025-01-10"`
	ContractAmount    *decimal.Decimal `json:"contractAmount,omitempty" swaggertype:"string" example:"3000"`
	Notes             string           `json:"notes,omitempty"`
}

// Validate runs the entry-form checks: every required field present and every
// date well formed.
func (r *CreateCustomerRequest) Validate() error {
	_, err := r.ToInput()
	return err
}

func (r *CreateCustomerRequest) ToInput() (customer.CreateCustomerInput, error) {
	required := []struct{ field, value string }{
		{"name", r.Name},
		{"address", r.Address},
		{"phone", r.Phone},
		{"model", r.Model},
		{"contractType", r.ContractType},
		{"installationDate", r.InstallationDate},
		{"contractEndDate", r.ContractEndDate},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return customer.CreateCustomerInput{}, apperrors.NewValidationError(f.field, f.field+" is required")
		}
	}

	installed, err := parseDateField("installationDate", r.InstallationDate)
	if err != nil {
		return customer.CreateCustomerInput{}, err
	}
	end, err := parseDateField("contractEndDate", r.ContractEndDate)
	if err != nil {
		return customer.CreateCustomerInput{}, err
	}
	start, err := parseOptionalDateField("contractStartDate", r.ContractStartDate)
	if err != nil {
		return customer.CreateCustomerInput{}, err
	}

	return customer.CreateCustomerInput{
		Name:              r.Name,
		Address:           r.Address,
		Phone:             r.Phone,
		Model:             r.Model,
		ContractType:      r.ContractType,
		InstallationDate:  installed,
		ContractStartDate: start,
		ContractEndDate:   end,
		ContractAmount:    r.ContractAmount,
		Notes:             r.Notes,
	}, nil
}

// UpdateCustomerRequest is a partial update; absent fields are left unchanged.
type UpdateCustomerRequest struct {
	Name              *string          `json:"name,omitempty"`
	Address           *string          `json:"address,omitempty"`
	Phone             *string          `json:"phone,omitempty"`
	Model             *string          `json:"model,omitempty"`
	ContractType      *string          `json:"contractType,omitempty"`
	InstallationDate  *string          `json:"installationDate,omitempty"`
	ContractStartDate *string          `json:"contractStartDate,omitempty"`
	ContractEndDate   *string          `json:"contractEndDate,omitempty"`
	ContractAmount    *decimal.Decimal `json:"contractAmount,omitempty" swaggertype:"string"`
	Notes             *string          `json:"notes,omitempty"`
}

func (r *UpdateCustomerRequest) ToPatch() (customer.CustomerPatch, error) {
	p := customer.CustomerPatch{
		Name:           r.Name,
		Address:        r.Address,
		Phone:          r.Phone,
		Model:          r.Model,
		ContractType:   r.ContractType,
		ContractAmount: r.ContractAmount,
		Notes:          r.Notes,
	}
	if r.InstallationDate != nil {
		d, err := parseDateField("installationDate", *r.InstallationDate)
		if err != nil {
			return customer.CustomerPatch{}, err
		}
		p.InstallationDate = &d
	}
	if r.ContractStartDate != nil {
		d, err := parseOptionalDateField("contractStartDate", *r.ContractStartDate)
		if err != nil {
			return customer.CustomerPatch{}, err
		}
		p.ContractStartDate = d
	}
	if r.ContractEndDate != nil {
		d, err := parseDateField("contractEndDate", *r.ContractEndDate)
		if err != nil {
			return customer.CustomerPatch{}, err
		}
		p.ContractEndDate = &d
	}
	return p, nil
}

type AddVisitRequest struct {
	Date        string `json:"date" example:"2024-06-01"`
	Description string `json:"description" example:"Filter change"`
	Spares      string `json:"spares,omitempty"`
	TechName    string `json:"techName"`
	Notes       string `json:"notes,omitempty"`
}

func (r *AddVisitRequest) ToInput() (customer.AddVisitInput, error) {
	for _, f := range []struct{ field, value string }{
		{"date", r.Date},
		{"description", r.Description},
		{"techName", r.TechName},
	} {
		if strings.TrimSpace(f.value) == "" {
			return customer.AddVisitInput{}, apperrors.NewValidationError(f.field, f.field+" is required")
		}
	}
	d, err := parseDateField("date", r.Date)
	if err != nil {
		return customer.AddVisitInput{}, err
	}
	return customer.AddVisitInput{
		Date:        d,
		Description: r.Description,
		Spares:      r.Spares,
		TechName:    r.TechName,
		Notes:       r.Notes,
	}, nil
}

type ServiceVisitResponse struct {
	Number      int    `json:"number"`
	VisitID     string `json:"visitId"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Spares      string `json:"spares,omitempty"`
	TechName    string `json:"techName"`
	Notes       string `json:"notes,omitempty"`
}

type CustomerResponse struct {
	CustomerID        string                 `json:"customerId"`
	Name              string                 `json:"name"`
	Address           string                 `json:"address"`
	Phone             string                 `json:"phone"`
	Model             string                 `json:"model"`
	ContractType      string                 `json:"contractType"`
	ContractLabel     string                 `json:"contractLabel"`
	ContractLongLabel string                 `json:"contractLongLabel"`
	InstallationDate  string                 `json:"installationDate"`
	ContractStartDate string                 `json:"contractStartDate,omitempty"`
	ContractEndDate   string                 `json:"contractEndDate"`
	ContractAmount    string                 `json:"contractAmount,omitempty"`
	Notes             string                 `json:"notes,omitempty"`
	Status            string                 `json:"status"`
	VisitCount        int                    `json:"visitCount"`
	LastVisitDate     string                 `json:"lastVisitDate,omitempty"`
	ServiceVisits     []ServiceVisitResponse `json:"serviceVisits,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
}

// NewCustomerResponse derives status and visit summary as of now. Visits are
// listed, numbered from 1, only when includeVisits is set.
func NewCustomerResponse(c *customer.Customer, now time.Time, includeVisits bool) CustomerResponse {
	summary := customer.SummarizeVisits(c)
	resp := CustomerResponse{
		CustomerID:        c.ID.String(),
		Name:              c.Name,
		Address:           c.Address,
		Phone:             c.Phone,
		Model:             c.Model,
		ContractType:      c.ContractType.String(),
		ContractLabel:     c.ContractType.Label(),
		ContractLongLabel: c.ContractType.LongLabel(),
		InstallationDate:  formatDate(c.InstallationDate),
		ContractEndDate:   formatDate(c.ContractEndDate),
		Notes:             c.Notes,
		Status:            string(customer.CustomerStatus(c, now)),
		VisitCount:        summary.Count,
		CreatedAt:         c.CreatedAt,
	}
	if c.ContractStartDate != nil {
		resp.ContractStartDate = formatDate(*c.ContractStartDate)
	}
	if c.ContractAmount != nil {
		resp.ContractAmount = c.ContractAmount.StringFixed(2)
	}
	if summary.LastVisit != nil {
		resp.LastVisitDate = formatDate(*summary.LastVisit)
	}
	if includeVisits {
		resp.ServiceVisits = make([]ServiceVisitResponse, 0, len(c.ServiceVisits))
		for i, v := range c.ServiceVisits {
			resp.ServiceVisits = append(resp.ServiceVisits, NewServiceVisitResponse(i+1, &v))
		}
	}
	return resp
}

func NewServiceVisitResponse(number int, v *customer.ServiceVisit) ServiceVisitResponse {
	return ServiceVisitResponse{
		Number:      number,
		VisitID:     v.ID.String(),
		Date:        formatDate(v.Date),
		Description: v.Description,
		Spares:      v.Spares,
		TechName:    v.TechName,
		Notes:       v.Notes,
	}
}

func NewCustomerResponses(list []*customer.Customer, now time.Time) []CustomerResponse {
	out := make([]CustomerResponse, 0, len(list))
	for _, c := range list {
		out = append(out, NewCustomerResponse(c, now, false))
	}
	return out
}

type CustomerListResponse struct {
	Customers   []CustomerResponse `json:"customers"`
	Count       int                `json:"count"`
	Loading     bool               `json:"loading"`
	RefreshedAt *time.Time         `json:"refreshedAt,omitempty"`
}

func NewCustomerListResponse(snap customer.Snapshot, list []*customer.Customer, now time.Time) CustomerListResponse {
	resp := CustomerListResponse{
		Customers: NewCustomerResponses(list, now),
		Count:     len(list),
		Loading:   snap.Loading,
	}
	if !snap.RefreshedAt.IsZero() {
		at := snap.RefreshedAt
		resp.RefreshedAt = &at
	}
	return resp
}

type DashboardResponse struct {
	customer.Stats
	AsOf string `json:"asOf"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(customer.DateLayout)
}

func parseDateField(field, value string) (time.Time, error) {
	d, err := customer.ParseDate(value)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(field, field+" must be a date in YYYY-MM-DD format")
	}
	if d.IsZero() {
		return time.Time{}, apperrors.NewValidationError(field, field+" is required")
	}
	return d, nil
}

func parseOptionalDateField(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := parseDateField(field, value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
