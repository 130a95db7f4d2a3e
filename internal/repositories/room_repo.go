package repositories

import (
	"context"
	"encoding/json"

	"pgdesk/internal/models"

	"github.com/jackc/pgx/v5"
)

// RoomRepository owns the occupancy store. The bed array is a JSONB
// sub-document replaced wholesale on every change; there is no version or
// optimistic-concurrency token on it, so concurrent writers can both observe
// the same prior state before either lands.
type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	GetByCode(ctx context.Context, roomCode string) (*models.Room, error)
	UpdateBeds(ctx context.Context, roomCode string, beds []models.Bed, status string) error
	ListByProperty(ctx context.Context, propertyCode string) ([]*models.Room, error)
}

type roomRepo struct {
	db Database
}

func NewRoomRepo(db Database) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) Create(ctx context.Context, room *models.Room) error {
	bedsJSON, err := json.Marshal(room.Beds)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO rooms (id, property_code, room_code, room_number, floor, room_type, beds, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err = r.db.Exec(ctx, query, room.ID, room.PropertyCode, room.RoomCode, room.RoomNumber, room.Floor, room.RoomType, bedsJSON, room.Status)
	return err
}

func (r *roomRepo) GetByCode(ctx context.Context, roomCode string) (*models.Room, error) {
	query := `
		SELECT id, property_code, room_code, room_number, floor, room_type, beds, status, created_at, updated_at
		FROM rooms
		WHERE room_code = $1
	`
	return scanRoom(r.db.QueryRow(ctx, query, roomCode))
}

// UpdateBeds replaces the whole bed array and the recomputed aggregate status.
func (r *roomRepo) UpdateBeds(ctx context.Context, roomCode string, beds []models.Bed, status string) error {
	bedsJSON, err := json.Marshal(beds)
	if err != nil {
		return err
	}
	query := `
		UPDATE rooms
		SET beds = $1, status = $2, updated_at = NOW()
		WHERE room_code = $3
	`
	_, err = r.db.Exec(ctx, query, bedsJSON, status, roomCode)
	return err
}

func (r *roomRepo) ListByProperty(ctx context.Context, propertyCode string) ([]*models.Room, error) {
	query := `
		SELECT id, property_code, room_code, room_number, floor, room_type, beds, status, created_at, updated_at
		FROM rooms
		WHERE property_code = $1
		ORDER BY room_number ASC
	`
	rows, err := r.db.Query(ctx, query, propertyCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room := &models.Room{}
		var bedsJSON []byte
		if err := rows.Scan(&room.ID, &room.PropertyCode, &room.RoomCode, &room.RoomNumber, &room.Floor, &room.RoomType, &bedsJSON, &room.Status, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(bedsJSON, &room.Beds); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	room := &models.Room{}
	var bedsJSON []byte
	err := row.Scan(&room.ID, &room.PropertyCode, &room.RoomCode, &room.RoomNumber, &room.Floor, &room.RoomType, &bedsJSON, &room.Status, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bedsJSON, &room.Beds); err != nil {
		return nil, err
	}
	return room, nil
}
