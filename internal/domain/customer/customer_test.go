package customer_test

import (
	"aquacare/internal/domain/customer"
	"aquacare/internal/pkg/apperrors"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCustomer(t *testing.T) {
	in := validInput("  Alice  ")
	start := time.Date(2024, 1, 10, 15, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	in.ContractStartDate = &start
	amount := decimal.RequireFromString("4500.00")
	in.ContractAmount = &amount

	cust, err := customer.NewCustomer(in, "owner-9")
	require.NoError(t, err)

	assert.Equal(t, "Alice", cust.Name)
	assert.Equal(t, "owner-9", cust.OwnerID)
	assert.NotNil(t, cust.ServiceVisits)
	assert.Empty(t, cust.ServiceVisits)
	assert.False(t, cust.CreatedAt.IsZero())
	require.NotNil(t, cust.ContractStartDate)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), *cust.ContractStartDate)
	assert.True(t, amount.Equal(*cust.ContractAmount))

	other, err := customer.NewCustomer(in, "owner-9")
	require.NoError(t, err)
	assert.NotEqual(t, cust.ID, other.ID, "ids must be unique")
}

func TestNewCustomer_Validation(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*customer.CreateCustomerInput)
		field string
	}{
		{"missing name", func(in *customer.CreateCustomerInput) { in.Name = "" }, "name"},
		{"missing address", func(in *customer.CreateCustomerInput) { in.Address = " " }, "address"},
		{"missing phone", func(in *customer.CreateCustomerInput) { in.Phone = "" }, "phone"},
		{"missing model", func(in *customer.CreateCustomerInput) { in.Model = "" }, "model"},
		{"missing contract type", func(in *customer.CreateCustomerInput) { in.ContractType = "" }, "contractType"},
		{"missing installation date", func(in *customer.CreateCustomerInput) { in.InstallationDate = time.Time{} }, "installationDate"},
		{"missing end date", func(in *customer.CreateCustomerInput) { in.ContractEndDate = time.Time{} }, "contractEndDate"},
		{"negative amount", func(in *customer.CreateCustomerInput) {
			a := decimal.NewFromInt(-1)
			in.ContractAmount = &a
		}, "contractAmount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput("Alice")
			tt.mut(&in)

			cust, err := customer.NewCustomer(in, "")
			require.Error(t, err)
			assert.Nil(t, cust)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			var vErr *apperrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestParseContractType(t *testing.T) {
	cases := map[string]customer.ContractType{
		"full":       customer.ContractFull,
		"AMC":        customer.ContractFull,
		"Limited":    customer.ContractLimited,
		"PreFilter":  customer.ContractPreFilter,
		"pre-filter": customer.ContractPreFilter,
	}
	for in, want := range cases {
		got, err := customer.ParseContractType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := customer.ParseContractType("gold")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestContractTypeLabels(t *testing.T) {
	assert.Equal(t, "Full Contract", customer.ContractFull.Label())
	assert.Equal(t, "Service Contract (No Membrane & Pump)", customer.ContractLimited.LongLabel())
	assert.Equal(t, "Pre Filter", customer.ContractPreFilter.Label())
	assert.Len(t, customer.ContractTypes(), 3)
	assert.False(t, customer.ContractType("gold").Valid())
}

func TestContractType_UnmarshalJSON(t *testing.T) {
	var v struct {
		Type customer.ContractType `json:"type"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"AMC"}`), &v))
	assert.Equal(t, customer.ContractFull, v.Type)

	assert.Error(t, json.Unmarshal([]byte(`{"type":"gold"}`), &v))
}

func TestCustomer_Apply(t *testing.T) {
	cust, err := customer.NewCustomer(validInput("Alice"), "")
	require.NoError(t, err)

	phone := "  111  "
	ct := "limited"
	end := date("2026-02-01")
	updated, err := cust.Apply(customer.CustomerPatch{Phone: &phone, ContractType: &ct, ContractEndDate: &end})
	require.NoError(t, err)

	assert.Equal(t, "111", updated.Phone)
	assert.Equal(t, customer.ContractLimited, updated.ContractType)
	assert.Equal(t, end, updated.ContractEndDate)
	assert.Equal(t, cust.ID, updated.ID)
	assert.Equal(t, "9876543210", cust.Phone, "original must be untouched")

	bad := "nope"
	_, err = cust.Apply(customer.CustomerPatch{ContractType: &bad})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestContractAmountKeepsTwoPlaces(t *testing.T) {
	in := validInput("Alice")
	amount := decimal.RequireFromString("3000.505")
	in.ContractAmount = &amount

	cust, err := customer.NewCustomer(in, "")
	require.NoError(t, err)
	assert.Equal(t, "3000.51", cust.ContractAmount.StringFixed(2))
	assert.Equal(t, "3000.505", amount.String(), "input must be untouched")

	whole := decimal.NewFromInt(4500)
	updated, err := cust.Apply(customer.CustomerPatch{ContractAmount: &whole})
	require.NoError(t, err)
	assert.Equal(t, *customer.RoundAmount(&whole), *updated.ContractAmount)

	raw, err := json.Marshal(updated)
	require.NoError(t, err)
	var back customer.Customer
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, *updated.ContractAmount, *customer.RoundAmount(back.ContractAmount))
}

func TestCustomer_CloneIsDeep(t *testing.T) {
	cust, err := customer.NewCustomer(validInput("Alice"), "")
	require.NoError(t, err)
	cust.ServiceVisits = append(cust.ServiceVisits, customer.ServiceVisit{Description: "x"})
	amount := decimal.NewFromInt(10)
	cust.ContractAmount = &amount

	clone := cust.Clone()
	clone.ServiceVisits[0].Description = "changed"
	*clone.ContractAmount = decimal.NewFromInt(99)

	assert.Equal(t, "x", cust.ServiceVisits[0].Description)
	assert.True(t, cust.ContractAmount.Equal(decimal.NewFromInt(10)))
	assert.Nil(t, (*customer.Customer)(nil).Clone())
}

func TestNewServiceVisit(t *testing.T) {
	cust, _ := customer.NewCustomer(validInput("Alice"), "")

	v, err := customer.NewServiceVisit(cust.ID, customer.AddVisitInput{
		Date: date("2024-05-05"), Description: " Filter change ", Spares: "Carbon", TechName: "Mani",
	})
	require.NoError(t, err)
	assert.Equal(t, cust.ID, v.CustomerID)
	assert.Equal(t, "Filter change", v.Description)
	assert.Equal(t, date("2024-05-05"), v.Date)

	_, err = customer.NewServiceVisit(cust.ID, customer.AddVisitInput{Description: "x", TechName: "y"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCustomer_JSONRoundTripKeepsDates(t *testing.T) {
	cust, err := customer.NewCustomer(validInput("Alice"), "")
	require.NoError(t, err)

	raw, err := json.Marshal(cust)
	require.NoError(t, err)
	var back customer.Customer
	require.NoError(t, json.Unmarshal(raw, &back))

	assert.True(t, cust.ContractEndDate.Equal(back.ContractEndDate))
	assert.Equal(t, cust.ContractType, back.ContractType)
	assert.Equal(t, cust.ID, back.ID)
}

func TestParseDate(t *testing.T) {
	d, err := customer.ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	zero, err := customer.ParseDate("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = customer.ParseDate("29/02/2024")
	assert.Error(t, err)
}
