package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/repository"
	appErrors "github.com/vidyalaya-labs/vidyalaya-api/pkg/errors"
)

const locationCacheKey = "locations:all"

type locationRepository interface {
	List(ctx context.Context) ([]models.InstituteLocation, error)
	FindByID(ctx context.Context, id string) (*models.InstituteLocation, error)
	Create(ctx context.Context, location *models.InstituteLocation) error
	Update(ctx context.Context, location *models.InstituteLocation) error
	Delete(ctx context.Context, id string) error
}

type locationCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LocationService manages the geofence anchor registry. The list read sits on
// the attendance hot path, so it is served through the cache; any write
// invalidates the cached list.
type LocationService struct {
	repo      locationRepository
	cache     locationCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLocationService constructs the location service.
func NewLocationService(repo locationRepository, cache locationCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *LocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &LocationService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// LocationRequest is the create/update payload for a geofence anchor.
type LocationRequest struct {
	Name         string  `json:"name" validate:"required"`
	Latitude     float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude    float64 `json:"longitude" validate:"min=-180,max=180"`
	RadiusMeters int     `json:"radius_meters" validate:"required,gt=0"`
}

// List returns all registered locations in registry order, via the cache.
func (s *LocationService) List(ctx context.Context) ([]models.InstituteLocation, error) {
	if s.cache != nil {
		var cached []models.InstituteLocation
		if err := s.cache.Get(ctx, locationCacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("location cache read failed", zap.Error(err))
		}
	}

	locations, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list locations")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, locationCacheKey, locations, s.cacheTTL); err != nil {
			s.logger.Warn("location cache write failed", zap.Error(err))
		}
	}
	return locations, nil
}

// Get returns one location by ID.
func (s *LocationService) Get(ctx context.Context, id string) (*models.InstituteLocation, error) {
	location, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "location not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}
	return location, nil
}

// Create registers a new geofence anchor.
func (s *LocationService) Create(ctx context.Context, req LocationRequest) (*models.InstituteLocation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid location payload")
	}

	location := &models.InstituteLocation{
		Name:         req.Name,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: req.RadiusMeters,
	}
	if err := s.repo.Create(ctx, location); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create location")
	}

	s.invalidate(ctx)
	s.logger.Info("location_created", zap.String("id", location.ID), zap.String("name", location.Name))
	return location, nil
}

// Update modifies an existing geofence anchor.
func (s *LocationService) Update(ctx context.Context, id string, req LocationRequest) (*models.InstituteLocation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid location payload")
	}

	location, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	location.Name = req.Name
	location.Latitude = req.Latitude
	location.Longitude = req.Longitude
	location.RadiusMeters = req.RadiusMeters
	if err := s.repo.Update(ctx, location); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update location")
	}

	s.invalidate(ctx)
	return location, nil
}

// Delete removes a geofence anchor.
func (s *LocationService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete location")
	}
	s.invalidate(ctx)
	return nil
}

func (s *LocationService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, locationCacheKey); err != nil {
		s.logger.Warn("location cache invalidation failed", zap.Error(err))
	}
}
