package models

import "time"

// InstituteLocation is a registered geofence anchor: a named point with an
// allowed radius in meters. The attendance core reads these on every attempt.
type InstituteLocation struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Latitude     float64   `db:"latitude" json:"latitude"`
	Longitude    float64   `db:"longitude" json:"longitude"`
	RadiusMeters int       `db:"radius_m" json:"radius_meters"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Coordinate is a transient latitude/longitude pair supplied by the caller's
// device. It is persisted only as the location snapshot on attendance records.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}
