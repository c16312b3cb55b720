package types

import "time"

type Stat struct {
	Key    string `json:"key"`
	Value  any    `json:"value"`
	Change string `json:"change"`
}

type TrendPoint struct {
	Label string `json:"label"`
	Date  string `json:"date"`
	Value int    `json:"value"`
}

type ActiveMatch struct {
	ID            string             `json:"id"`
	DonorID       *string            `json:"donorId"`
	DonorName     string             `json:"donorName"`
	RecipientID   *string            `json:"recipientId"`
	RecipientName string             `json:"recipientName"`
	OrganType     string             `json:"organType"`
	Hospital      string             `json:"hospital"`
	Status        OrganRequestStatus `json:"status"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

type TransportSummary struct {
	Courier         string             `json:"courier"`
	ETA             string             `json:"eta"`
	CurrentLocation Coordinates        `json:"currentLocation"`
	Route           []Waypoint         `json:"route"`
	Hospital        *TransportHospital `json:"hospital"`
	Timeline        []TimelineEvent    `json:"timeline"`
}

type Overview struct {
	Stats         []Stat             `json:"stats"`
	ActiveMatches []ActiveMatch      `json:"activeMatches"`
	Transports    []TransportSummary `json:"transports"`
	Timeline      []TimelineEvent    `json:"timeline"`
	Trend         []TrendPoint       `json:"trend"`
}
