package repositories

import (
	"context"

	"pgdesk/internal/models"

	"github.com/google/uuid"
)

// PropertyRepository backs the property registry lookups the lifecycle engine
// consumes. Property CRUD beyond these reads lives outside the core.
type PropertyRepository interface {
	Create(ctx context.Context, property *models.Property) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	GetByCode(ctx context.Context, propertyCode string) (*models.Property, error)
}

type propertyRepo struct {
	db Database
}

func NewPropertyRepo(db Database) PropertyRepository {
	return &propertyRepo{db: db}
}

func (r *propertyRepo) Create(ctx context.Context, property *models.Property) error {
	query := `
		INSERT INTO properties (id, owner_id, property_code, name, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, property.ID, property.OwnerID, property.PropertyCode, property.Name, property.Location)
	return err
}

func (r *propertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	property := &models.Property{}
	query := `
		SELECT id, owner_id, property_code, name, location, created_at, updated_at
		FROM properties
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&property.ID, &property.OwnerID, &property.PropertyCode, &property.Name, &property.Location, &property.CreatedAt, &property.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return property, nil
}

func (r *propertyRepo) GetByCode(ctx context.Context, propertyCode string) (*models.Property, error) {
	property := &models.Property{}
	query := `
		SELECT id, owner_id, property_code, name, location, created_at, updated_at
		FROM properties
		WHERE property_code = $1
	`
	err := r.db.QueryRow(ctx, query, propertyCode).Scan(&property.ID, &property.OwnerID, &property.PropertyCode, &property.Name, &property.Location, &property.CreatedAt, &property.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return property, nil
}
