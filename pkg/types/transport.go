package types

import "time"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Waypoint struct {
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type TimelineEvent struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

type TransportHospital struct {
	Name        string       `json:"name"`
	Coordinates *Coordinates `json:"coordinates"`
}

// DefaultLocation is where a courier with no reported position is drawn.
var DefaultLocation = Coordinates{Lat: 19.076, Lng: 72.8777}

// Transport is a courier leg. Route and timeline are stored as jsonb and are
// fed by an external system; nothing here computes positions.
type Transport struct {
	ID              string             `db:"id" json:"_id"`
	OrganRequestID  string             `db:"organ_request_id" json:"organRequest,omitempty"`
	OrganType       *string            `db:"organ_type" json:"organType"`
	Courier         *string            `db:"courier" json:"courier"`
	ETA             *string            `db:"eta" json:"eta"`
	Hospital        *TransportHospital `db:"hospital" json:"hospital"`
	CurrentLocation *Coordinates       `db:"current_location" json:"currentLocation"`
	Route           []Waypoint         `db:"route" json:"route"`
	Timeline        []TimelineEvent    `db:"timeline" json:"timeline"`
	CreatedAt       time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updatedAt"`
}
