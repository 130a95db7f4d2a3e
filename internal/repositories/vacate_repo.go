package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pgdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VacateRepository owns the vacate ledger. Withdrawn and retained requests are
// hard-deleted; only open and expired requests remain.
type VacateRepository interface {
	Create(ctx context.Context, request *models.VacateRequest) error
	GetOpenByTenantCode(ctx context.Context, tenantCode string) (*models.VacateRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListExpiredNotice(ctx context.Context, asOf time.Time, limit int) ([]*models.VacateRequest, error)
}

type vacateRepo struct {
	db Database
}

func NewVacateRepo(db Database) VacateRepository {
	return &vacateRepo{db: db}
}

const vacateColumns = `id, tenant_code, property_code, room_code, bed_id, raised_at, is_immediate_vacate, is_deposit_refunded, vacate_date, notice_start, notice_end, status, reason, removed_by_owner, previous_snapshot, created_at`

func (r *vacateRepo) Create(ctx context.Context, request *models.VacateRequest) error {
	var snapshotJSON []byte
	if request.PreviousSnapshot != nil {
		data, err := json.Marshal(request.PreviousSnapshot)
		if err != nil {
			return err
		}
		snapshotJSON = data
	}
	query := `
		INSERT INTO vacate_requests (id, tenant_code, property_code, room_code, bed_id, raised_at, is_immediate_vacate, is_deposit_refunded, vacate_date, notice_start, notice_end, status, reason, removed_by_owner, previous_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
	`
	_, err := r.db.Exec(ctx, query,
		request.ID, request.TenantCode, request.PropertyCode, request.RoomCode, request.BedID,
		request.RaisedAt, request.IsImmediateVacate, request.IsDepositRefunded, request.VacateDate,
		request.NoticeStart, request.NoticeEnd, request.Status, request.Reason, request.RemovedByOwner, snapshotJSON)
	return err
}

// GetOpenByTenantCode returns the tenant's latest request, or nil when none
// exists. Withdrawn and retained requests are deleted, but completed ones
// survive across rejoins, so callers must check Settled before treating the
// row as open.
func (r *vacateRepo) GetOpenByTenantCode(ctx context.Context, tenantCode string) (*models.VacateRequest, error) {
	query := `SELECT ` + vacateColumns + ` FROM vacate_requests WHERE tenant_code = $1 ORDER BY raised_at DESC LIMIT 1`
	request, err := scanVacateRequest(r.db.QueryRow(ctx, query, tenantCode))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return request, err
}

func (r *vacateRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE vacate_requests SET status = $1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, status, id)
	return err
}

func (r *vacateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM vacate_requests WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// ListExpiredNotice returns notice-period requests whose vacate date has
// passed, for the sweep that marks them completed.
func (r *vacateRepo) ListExpiredNotice(ctx context.Context, asOf time.Time, limit int) ([]*models.VacateRequest, error) {
	query := `
		SELECT ` + vacateColumns + `
		FROM vacate_requests
		WHERE status = $1 AND vacate_date < $2
		ORDER BY vacate_date ASC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, models.VacateStatusNoticePeriod, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.VacateRequest
	for rows.Next() {
		request := &models.VacateRequest{}
		var snapshotJSON []byte
		if err := rows.Scan(&request.ID, &request.TenantCode, &request.PropertyCode, &request.RoomCode, &request.BedID,
			&request.RaisedAt, &request.IsImmediateVacate, &request.IsDepositRefunded, &request.VacateDate,
			&request.NoticeStart, &request.NoticeEnd, &request.Status, &request.Reason, &request.RemovedByOwner,
			&snapshotJSON, &request.CreatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalSnapshot(request, snapshotJSON); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, nil
}

func scanVacateRequest(row pgx.Row) (*models.VacateRequest, error) {
	request := &models.VacateRequest{}
	var snapshotJSON []byte
	err := row.Scan(&request.ID, &request.TenantCode, &request.PropertyCode, &request.RoomCode, &request.BedID,
		&request.RaisedAt, &request.IsImmediateVacate, &request.IsDepositRefunded, &request.VacateDate,
		&request.NoticeStart, &request.NoticeEnd, &request.Status, &request.Reason, &request.RemovedByOwner,
		&snapshotJSON, &request.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalSnapshot(request, snapshotJSON); err != nil {
		return nil, err
	}
	return request, nil
}

func unmarshalSnapshot(request *models.VacateRequest, snapshotJSON []byte) error {
	if len(snapshotJSON) == 0 {
		return nil
	}
	snapshot := &models.StaySnapshot{}
	if err := json.Unmarshal(snapshotJSON, snapshot); err != nil {
		return err
	}
	request.PreviousSnapshot = snapshot
	return nil
}
