package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pgdesk/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the query surface shared by *pgxpool.Pool and the pgxmock pool
// used in repository tests.
type Database interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// TenantRepository owns the tenancy store: the authoritative tenant record with
// its embedded stay document and history. No transaction spans this store and
// the occupancy store; callers rely on call ordering alone.
type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByCode(ctx context.Context, tenantCode string) (*models.Tenant, error)
	FindByCode(ctx context.Context, tenantCode string) (*models.Tenant, error)
	FindActiveByPhone(ctx context.Context, phone string) (*models.Tenant, error)
	FindActiveByNationalID(ctx context.Context, nationalID string) (*models.Tenant, error)
	CodeByPhone(ctx context.Context, phone string) (string, error)
	CodeExists(ctx context.Context, tenantCode string) (bool, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	Delete(ctx context.Context, tenantCode string) error
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
	ListDefaulters(ctx context.Context, asOf time.Time, limit, offset int) ([]*models.Tenant, error)
}

type tenantRepo struct {
	db Database
}

func NewTenantRepo(db Database) TenantRepository {
	return &tenantRepo{db: db}
}

const tenantColumns = `id, tenant_code, name, phone, national_id, email, status, current_stay, stay_history, created_at, updated_at`

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	stayJSON, historyJSON, err := marshalStayDocs(tenant)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO tenants (id, tenant_code, name, phone, national_id, email, status, current_stay, stay_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err = r.db.Exec(ctx, query, tenant.ID, tenant.TenantCode, tenant.Name, tenant.Phone, tenant.NationalID, tenant.Email, tenant.Status, stayJSON, historyJSON)
	return err
}

func (r *tenantRepo) GetByCode(ctx context.Context, tenantCode string) (*models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE tenant_code = $1`, tenantColumns)
	return r.scanTenant(r.db.QueryRow(ctx, query, tenantCode))
}

// FindByCode is the nil-on-missing variant of GetByCode, used by onboarding
// to detect a returning tenant whose row should be reactivated.
func (r *tenantRepo) FindByCode(ctx context.Context, tenantCode string) (*models.Tenant, error) {
	tenant, err := r.GetByCode(ctx, tenantCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return tenant, err
}

func (r *tenantRepo) FindActiveByPhone(ctx context.Context, phone string) (*models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE phone = $1 AND status = 'active'`, tenantColumns)
	tenant, err := r.scanTenant(r.db.QueryRow(ctx, query, phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return tenant, err
}

func (r *tenantRepo) FindActiveByNationalID(ctx context.Context, nationalID string) (*models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE national_id = $1 AND status = 'active'`, tenantColumns)
	tenant, err := r.scanTenant(r.db.QueryRow(ctx, query, nationalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return tenant, err
}

// CodeByPhone returns the most recently issued tenant code for a phone, active
// or not, so onboarding can reuse a returning tenant's code.
func (r *tenantRepo) CodeByPhone(ctx context.Context, phone string) (string, error) {
	query := `SELECT tenant_code FROM tenants WHERE phone = $1 ORDER BY created_at DESC LIMIT 1`
	var code string
	err := r.db.QueryRow(ctx, query, phone).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

func (r *tenantRepo) CodeExists(ctx context.Context, tenantCode string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM tenants WHERE tenant_code = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, tenantCode).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *tenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	stayJSON, historyJSON, err := marshalStayDocs(tenant)
	if err != nil {
		return err
	}
	query := `
		UPDATE tenants
		SET name = $1, phone = $2, national_id = $3, email = $4, status = $5, current_stay = $6, stay_history = $7, updated_at = NOW()
		WHERE tenant_code = $8
	`
	_, err = r.db.Exec(ctx, query, tenant.Name, tenant.Phone, tenant.NationalID, tenant.Email, tenant.Status, stayJSON, historyJSON, tenant.TenantCode)
	return err
}

func (r *tenantRepo) Delete(ctx context.Context, tenantCode string) error {
	query := `DELETE FROM tenants WHERE tenant_code = $1`
	_, err := r.db.Exec(ctx, query, tenantCode)
	return err
}

func (r *tenantRepo) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tenants
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, tenantColumns)
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanTenants(rows)
}

// ListDefaulters returns active tenants whose rent is unpaid past its due date.
func (r *tenantRepo) ListDefaulters(ctx context.Context, asOf time.Time, limit, offset int) ([]*models.Tenant, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tenants
		WHERE status = 'active'
		  AND current_stay ->> 'rent_paid_status' = 'unpaid'
		  AND (current_stay ->> 'rent_due_date')::timestamptz < $1
		ORDER BY (current_stay ->> 'rent_due_date')::timestamptz ASC
		LIMIT $2 OFFSET $3
	`, tenantColumns)
	rows, err := r.db.Query(ctx, query, asOf, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanTenants(rows)
}

func (r *tenantRepo) scanTenant(row pgx.Row) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	var stayJSON, historyJSON []byte
	err := row.Scan(&tenant.ID, &tenant.TenantCode, &tenant.Name, &tenant.Phone, &tenant.NationalID, &tenant.Email, &tenant.Status, &stayJSON, &historyJSON, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalStayDocs(tenant, stayJSON, historyJSON); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (r *tenantRepo) scanTenants(rows pgx.Rows) ([]*models.Tenant, error) {
	var tenants []*models.Tenant
	for rows.Next() {
		tenant := &models.Tenant{}
		var stayJSON, historyJSON []byte
		if err := rows.Scan(&tenant.ID, &tenant.TenantCode, &tenant.Name, &tenant.Phone, &tenant.NationalID, &tenant.Email, &tenant.Status, &stayJSON, &historyJSON, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalStayDocs(tenant, stayJSON, historyJSON); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}

func marshalStayDocs(tenant *models.Tenant) ([]byte, []byte, error) {
	var stayJSON []byte
	if tenant.CurrentStay != nil {
		data, err := json.Marshal(tenant.CurrentStay)
		if err != nil {
			return nil, nil, err
		}
		stayJSON = data
	}
	history := tenant.StayHistory
	if history == nil {
		history = []models.StayRecord{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, nil, err
	}
	return stayJSON, historyJSON, nil
}

func unmarshalStayDocs(tenant *models.Tenant, stayJSON, historyJSON []byte) error {
	if len(stayJSON) > 0 {
		stay := &models.CurrentStay{}
		if err := json.Unmarshal(stayJSON, stay); err != nil {
			return err
		}
		tenant.CurrentStay = stay
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &tenant.StayHistory); err != nil {
			return err
		}
	}
	return nil
}
