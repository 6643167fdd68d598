package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
)

// LocationRepository manages persistence for institute geofence anchors.
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository constructs a LocationRepository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// List returns every registered institute location in creation order. The
// geofence evaluator depends on this ordering for its first-match rule.
func (r *LocationRepository) List(ctx context.Context) ([]models.InstituteLocation, error) {
	const query = `SELECT id, name, latitude, longitude, radius_m, created_at, updated_at FROM institute_locations ORDER BY created_at ASC`
	var locations []models.InstituteLocation
	if err := r.db.SelectContext(ctx, &locations, query); err != nil {
		return nil, fmt.Errorf("list institute locations: %w", err)
	}
	return locations, nil
}

// FindByID fetches a location by ID.
func (r *LocationRepository) FindByID(ctx context.Context, id string) (*models.InstituteLocation, error) {
	const query = `SELECT id, name, latitude, longitude, radius_m, created_at, updated_at FROM institute_locations WHERE id = $1`
	var location models.InstituteLocation
	if err := r.db.GetContext(ctx, &location, query, id); err != nil {
		return nil, err
	}
	return &location, nil
}

// Create inserts a new institute location.
func (r *LocationRepository) Create(ctx context.Context, location *models.InstituteLocation) error {
	if location.ID == "" {
		location.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if location.CreatedAt.IsZero() {
		location.CreatedAt = now
	}
	location.UpdatedAt = now

	const query = `INSERT INTO institute_locations (id, name, latitude, longitude, radius_m, created_at, updated_at)
		VALUES (:id, :name, :latitude, :longitude, :radius_m, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, location); err != nil {
		return fmt.Errorf("create institute location: %w", err)
	}
	return nil
}

// Update modifies an existing institute location.
func (r *LocationRepository) Update(ctx context.Context, location *models.InstituteLocation) error {
	location.UpdatedAt = time.Now().UTC()
	const query = `UPDATE institute_locations SET name = :name, latitude = :latitude, longitude = :longitude, radius_m = :radius_m, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, location); err != nil {
		return fmt.Errorf("update institute location: %w", err)
	}
	return nil
}

// Delete removes an institute location.
func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM institute_locations WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete institute location: %w", err)
	}
	return nil
}
