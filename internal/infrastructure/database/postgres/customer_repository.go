package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"aquacare/internal/domain/customer"
	"aquacare/internal/infrastructure/monitoring"
	"aquacare/internal/pkg/apperrors"
	"aquacare/internal/pkg/identity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	selectCustomersQuery = `
        SELECT id, owner_id, name, address, phone, model, contract_type,
               installation_date, contract_start_date, contract_end_date,
               contract_amount, notes, created_at
        FROM customers
        WHERE owner_id = $1
        ORDER BY created_at DESC`

	selectVisitsQuery = `
        SELECT id, customer_id, visit_date, service_type, spares_used, tech_name, notes, created_at
        FROM service_visits
        WHERE customer_id = ANY($1::uuid[])
        ORDER BY created_at ASC`

	insertCustomerQuery = `
        INSERT INTO customers (id, owner_id, name, address, phone, model, contract_type,
                               installation_date, contract_start_date, contract_end_date,
                               contract_amount, notes, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updateCustomerQuery = `
        UPDATE customers
        SET name = $1,
            address = $2,
            phone = $3,
            model = $4,
            contract_type = $5,
            installation_date = $6,
            contract_start_date = $7,
            contract_end_date = $8,
            contract_amount = $9,
            notes = $10
        WHERE id = $11 AND owner_id = $12`

	deleteCustomerQuery = `DELETE FROM customers WHERE id = $1 AND owner_id = $2`

	insertVisitQuery = `
        INSERT INTO service_visits (id, customer_id, owner_id, visit_date, service_type,
                                    spares_used, tech_name, notes, created_at)
        SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
        WHERE EXISTS (SELECT 1 FROM customers WHERE id = $2 AND owner_id = $3)`

	selectOwnersQuery = `SELECT DISTINCT owner_id FROM customers ORDER BY owner_id`
)

// CustomerRepository is the hosted strategy: two related tables scoped by owner.
type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.Repository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository"),
	}
}

func (r *CustomerRepository) LoadAll(ctx context.Context) ([]*customer.Customer, error) {
	owner := identity.OwnerFrom(ctx)
	logCtx := r.logger.With(slog.String("operation", "LoadAll"), slog.String("owner", owner))
	logCtx.DebugContext(ctx, "Fetching customers")

	start := time.Now()
	rows, err := r.db.Query(ctx, selectCustomersQuery, owner)
	if err != nil {
		monitoring.RecordDBQuery("select_customers", err, time.Since(start))
		logCtx.ErrorContext(ctx, "Failed to query customers", slog.Any("error", err))
		return nil, translateDBError(err, logCtx)
	}
	defer rows.Close()

	customers := make([]*customer.Customer, 0)
	byID := make(map[uuid.UUID]*customer.Customer)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var (
			c            customer.Customer
			contractType string
			amount       decimal.NullDecimal
		)
		if err := rows.Scan(
			&c.ID,
			&c.OwnerID,
			&c.Name,
			&c.Address,
			&c.Phone,
			&c.Model,
			&contractType,
			&c.InstallationDate,
			&c.ContractStartDate,
			&c.ContractEndDate,
			&amount,
			&c.Notes,
			&c.CreatedAt,
		); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan customer row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan customer: %w", apperrors.ErrDatabase, err)
		}
		c.ContractType = customer.ContractType(contractType)
		if amount.Valid {
			c.ContractAmount = customer.RoundAmount(&amount.Decimal)
		}
		c.InstallationDate = customer.TruncateDate(c.InstallationDate)
		c.ContractEndDate = customer.TruncateDate(c.ContractEndDate)
		if c.ContractStartDate != nil {
			d := customer.TruncateDate(*c.ContractStartDate)
			c.ContractStartDate = &d
		}
		c.ServiceVisits = []customer.ServiceVisit{}

		customers = append(customers, &c)
		byID[c.ID] = &c
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		monitoring.RecordDBQuery("select_customers", err, time.Since(start))
		logCtx.ErrorContext(ctx, "Error iterating customer rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating customers: %w", apperrors.ErrDatabase, err)
	}
	monitoring.RecordDBQuery("select_customers", nil, time.Since(start))

	if len(ids) == 0 {
		return customers, nil
	}
	if err := r.attachVisits(ctx, ids, byID, logCtx); err != nil {
		return nil, err
	}

	logCtx.DebugContext(ctx, "Fetched customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (r *CustomerRepository) attachVisits(ctx context.Context, ids []uuid.UUID, byID map[uuid.UUID]*customer.Customer, logCtx *slog.Logger) error {
	start := time.Now()
	rows, err := r.db.Query(ctx, selectVisitsQuery, ids)
	if err != nil {
		monitoring.RecordDBQuery("select_visits", err, time.Since(start))
		logCtx.ErrorContext(ctx, "Failed to query service visits", slog.Any("error", err))
		return translateDBError(err, logCtx)
	}
	defer rows.Close()

	for rows.Next() {
		var v customer.ServiceVisit
		if err := rows.Scan(&v.ID, &v.CustomerID, &v.Date, &v.Description, &v.Spares, &v.TechName, &v.Notes, &v.CreatedAt); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan service visit row", slog.Any("error", err))
			return fmt.Errorf("%w: failed to scan service visit: %w", apperrors.ErrDatabase, err)
		}
		v.Date = customer.TruncateDate(v.Date)
		if c, ok := byID[v.CustomerID]; ok {
			c.ServiceVisits = append(c.ServiceVisits, v)
		}
	}
	err = rows.Err()
	monitoring.RecordDBQuery("select_visits", err, time.Since(start))
	if err != nil {
		logCtx.ErrorContext(ctx, "Error iterating service visit rows", slog.Any("error", err))
		return fmt.Errorf("%w: error iterating service visits: %w", apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *CustomerRepository) Insert(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return customer.ErrNilCustomer
	}
	owner := identity.OwnerFrom(ctx)
	r.logger.InfoContext(ctx, "Attempting to insert new customer", slog.String("customerID", cust.ID.String()), slog.String("owner", owner))

	start := time.Now()
	_, err := r.db.Exec(ctx, insertCustomerQuery,
		cust.ID,
		owner,
		cust.Name,
		cust.Address,
		cust.Phone,
		cust.Model,
		cust.ContractType.String(),
		cust.InstallationDate,
		cust.ContractStartDate,
		cust.ContractEndDate,
		nullAmount(cust.ContractAmount),
		cust.Notes,
		cust.CreatedAt,
	)
	monitoring.RecordDBQuery("insert_customer", err, time.Since(start))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}

	r.logger.InfoContext(ctx, "Customer inserted successfully", slog.String("customerID", cust.ID.String()))
	return nil
}

func (r *CustomerRepository) Update(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return customer.ErrNilCustomer
	}
	owner := identity.OwnerFrom(ctx)
	r.logger.InfoContext(ctx, "Attempting to update customer", slog.String("customerID", cust.ID.String()))

	start := time.Now()
	cmdTag, err := r.db.Exec(ctx, updateCustomerQuery,
		cust.Name,
		cust.Address,
		cust.Phone,
		cust.Model,
		cust.ContractType.String(),
		cust.InstallationDate,
		cust.ContractStartDate,
		cust.ContractEndDate,
		nullAmount(cust.ContractAmount),
		cust.Notes,
		cust.ID,
		owner,
	)
	monitoring.RecordDBQuery("update_customer", err, time.Since(start))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update customer", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected no rows, customer not found", slog.String("customerID", cust.ID.String()))
		return customer.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Customer updated successfully", slog.String("customerID", cust.ID.String()))
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, customerID uuid.UUID) error {
	owner := identity.OwnerFrom(ctx)
	r.logger.InfoContext(ctx, "Attempting to delete customer", slog.String("customerID", customerID.String()))

	start := time.Now()
	cmdTag, err := r.db.Exec(ctx, deleteCustomerQuery, customerID, owner)
	monitoring.RecordDBQuery("delete_customer", err, time.Since(start))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete customer", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Delete affected no rows, customer not found", slog.String("customerID", customerID.String()))
		return customer.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Customer deleted successfully", slog.String("customerID", customerID.String()))
	return nil
}

func (r *CustomerRepository) InsertVisit(ctx context.Context, v *customer.ServiceVisit) error {
	if v == nil {
		return fmt.Errorf("%w: visit cannot be nil", apperrors.ErrInvalidArgument)
	}
	owner := identity.OwnerFrom(ctx)
	r.logger.InfoContext(ctx, "Attempting to insert service visit",
		slog.String("customerID", v.CustomerID.String()), slog.String("visitID", v.ID.String()))

	start := time.Now()
	cmdTag, err := r.db.Exec(ctx, insertVisitQuery,
		v.ID,
		v.CustomerID,
		owner,
		v.Date,
		v.Description,
		v.Spares,
		v.TechName,
		v.Notes,
		v.CreatedAt,
	)
	monitoring.RecordDBQuery("insert_visit", err, time.Since(start))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert service visit", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Visit not inserted, customer not found for owner", slog.String("customerID", v.CustomerID.String()))
		return customer.ErrNotFound
	}
	return nil
}

func (r *CustomerRepository) Owners(ctx context.Context) ([]string, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx, selectOwnersQuery)
	if err != nil {
		monitoring.RecordDBQuery("select_owners", err, time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to query owners", slog.Any("error", err))
		return nil, translateDBError(err, r.logger)
	}
	defer rows.Close()

	owners := make([]string, 0)
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("%w: failed to scan owner: %w", apperrors.ErrDatabase, err)
		}
		owners = append(owners, owner)
	}
	err = rows.Err()
	monitoring.RecordDBQuery("select_owners", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: error iterating owners: %w", apperrors.ErrDatabase, err)
	}
	return owners, nil
}

func nullAmount(amount *decimal.Decimal) decimal.NullDecimal {
	if amount == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*amount)
}
