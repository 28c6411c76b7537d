package customer

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of every calendar date.
const DateLayout = "2006-01-02"

type Customer struct {
	ID                uuid.UUID        `json:"id"`
	OwnerID           string           `json:"ownerId,omitempty"`
	Name              string           `json:"name"`
	Address           string           `json:"address"`
	Phone             string           `json:"phone"`
	Model             string           `json:"model"`
	ContractType      ContractType     `json:"contractType"`
	InstallationDate  time.Time        `json:"installationDate"`
	ContractStartDate *time.Time       `json:"contractStartDate,omitempty"`
	ContractEndDate   time.Time        `json:"contractEndDate"`
	ContractAmount    *decimal.Decimal `json:"contractAmount,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	ServiceVisits     []ServiceVisit   `json:"serviceVisits"`
	CreatedAt         time.Time        `json:"createdAt"`
}

type ServiceVisit struct {
	ID          uuid.UUID `json:"id"`
	CustomerID  uuid.UUID `json:"customerId"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Spares      string    `json:"spares,omitempty"`
	TechName    string    `json:"techName"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CreateCustomerInput struct {
	Name              string
	Address           string
	Phone             string
	Model             string
	ContractType      string
	InstallationDate  time.Time
	ContractStartDate *time.Time
	ContractEndDate   time.Time
	ContractAmount    *decimal.Decimal
	Notes             string
}

// CustomerPatch holds the fields of an update; nil means "leave unchanged".
type CustomerPatch struct {
	Name              *string
	Address           *string
	Phone             *string
	Model             *string
	ContractType      *string
	InstallationDate  *time.Time
	ContractStartDate *time.Time
	ContractEndDate   *time.Time
	ContractAmount    *decimal.Decimal
	Notes             *string
}

type AddVisitInput struct {
	Date        time.Time
	Description string
	Spares      string
	TechName    string
	Notes       string
}

// NewCustomer validates in and builds a customer with a fresh id and an
// empty visit sequence.
func NewCustomer(in CreateCustomerInput, ownerID string) (*Customer, error) {
	contractType, err := ParseContractType(in.ContractType)
	if err != nil {
		return nil, err
	}

	c := &Customer{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		Name:              strings.TrimSpace(in.Name),
		Address:           strings.TrimSpace(in.Address),
		Phone:             strings.TrimSpace(in.Phone),
		Model:             strings.TrimSpace(in.Model),
		ContractType:      contractType,
		InstallationDate:  TruncateDate(in.InstallationDate),
		ContractStartDate: truncateDatePtr(in.ContractStartDate),
		ContractEndDate:   TruncateDate(in.ContractEndDate),
		ContractAmount:    RoundAmount(in.ContractAmount),
		Notes:             strings.TrimSpace(in.Notes),
		ServiceVisits:     []ServiceVisit{},
		CreatedAt:         time.Now().UTC(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate enforces the required-field set shared by create and update.
func (c *Customer) Validate() error {
	switch {
	case c.Name == "":
		return requiredField("name")
	case c.Address == "":
		return requiredField("address")
	case c.Phone == "":
		return requiredField("phone")
	case c.Model == "":
		return requiredField("model")
	case !c.ContractType.Valid():
		return invalidField("contractType", "unknown contract type")
	case c.InstallationDate.IsZero():
		return requiredField("installationDate")
	case c.ContractEndDate.IsZero():
		return requiredField("contractEndDate")
	case c.ContractAmount != nil && c.ContractAmount.IsNegative():
		return invalidField("contractAmount", "contract amount cannot be negative")
	}
	return nil
}

// Apply merges p into a copy of c and returns the copy.
func (c *Customer) Apply(p CustomerPatch) (*Customer, error) {
	out := c.Clone()
	if p.Name != nil {
		out.Name = strings.TrimSpace(*p.Name)
	}
	if p.Address != nil {
		out.Address = strings.TrimSpace(*p.Address)
	}
	if p.Phone != nil {
		out.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Model != nil {
		out.Model = strings.TrimSpace(*p.Model)
	}
	if p.ContractType != nil {
		ct, err := ParseContractType(*p.ContractType)
		if err != nil {
			return nil, err
		}
		out.ContractType = ct
	}
	if p.InstallationDate != nil {
		out.InstallationDate = TruncateDate(*p.InstallationDate)
	}
	if p.ContractStartDate != nil {
		out.ContractStartDate = truncateDatePtr(p.ContractStartDate)
	}
	if p.ContractEndDate != nil {
		out.ContractEndDate = TruncateDate(*p.ContractEndDate)
	}
	if p.ContractAmount != nil {
		out.ContractAmount = RoundAmount(p.ContractAmount)
	}
	if p.Notes != nil {
		out.Notes = strings.TrimSpace(*p.Notes)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// NewServiceVisit validates in and builds a visit owned by customerID.
func NewServiceVisit(customerID uuid.UUID, in AddVisitInput) (*ServiceVisit, error) {
	v := &ServiceVisit{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Date:        TruncateDate(in.Date),
		Description: strings.TrimSpace(in.Description),
		Spares:      strings.TrimSpace(in.Spares),
		TechName:    strings.TrimSpace(in.TechName),
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   time.Now().UTC(),
	}
	switch {
	case v.Date.IsZero():
		return nil, requiredField("date")
	case v.Description == "":
		return nil, requiredField("description")
	case v.TechName == "":
		return nil, requiredField("techName")
	}
	return v, nil
}

// Clone returns a deep copy; snapshot readers never share memory with the store.
func (c *Customer) Clone() *Customer {
	if c == nil {
		return nil
	}
	out := *c
	if c.ContractStartDate != nil {
		d := *c.ContractStartDate
		out.ContractStartDate = &d
	}
	if c.ContractAmount != nil {
		a := *c.ContractAmount
		out.ContractAmount = &a
	}
	out.ServiceVisits = make([]ServiceVisit, len(c.ServiceVisits))
	copy(out.ServiceVisits, c.ServiceVisits)
	return &out
}

func CloneAll(list []*Customer) []*Customer {
	out := make([]*Customer, len(list))
	for i, c := range list {
		out[i] = c.Clone()
	}
	return out
}

// TruncateDate drops the clock part of t, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RoundAmount returns a copy of d fixed at two decimal places, so an amount
// reads back from JSON or numeric(12,2) with the same representation.
func RoundAmount(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(2)
	return &r
}

func truncateDatePtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := TruncateDate(*t)
	return &d
}

// ParseDate parses a YYYY-MM-DD string; an empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}
