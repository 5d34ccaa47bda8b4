package models

import "time"

// RequestUrgency ranks how badly the requester needs the material.
type RequestUrgency string

const (
	UrgencyLow    RequestUrgency = "low"
	UrgencyNormal RequestUrgency = "normal"
	UrgencyHigh   RequestUrgency = "high"
	UrgencyUrgent RequestUrgency = "urgent"
)

// ValidUrgency reports whether the value belongs to the urgency enum.
func ValidUrgency(u RequestUrgency) bool {
	switch u {
	case UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyUrgent:
		return true
	}
	return false
}

// RequestStatus captures the material request lifecycle.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusFulfilled RequestStatus = "fulfilled"
	RequestStatusExpired   RequestStatus = "expired"
)

// Request is a student's declared need for a study material.
// The three fulfilled* fields are set together, exactly once, by the
// fulfillment transaction; status=fulfilled iff they are non-null.
type Request struct {
	ID                string         `db:"id" json:"id"`
	Title             string         `db:"title" json:"title"`
	Description       string         `db:"description" json:"description"`
	Subject           string         `db:"subject" json:"subject"`
	Campus            string         `db:"campus" json:"campus"`
	Course            string         `db:"course" json:"course"`
	Year              string         `db:"year" json:"year"`
	Semester          string         `db:"semester" json:"semester"`
	Urgency           RequestUrgency `db:"urgency" json:"urgency"`
	Status            RequestStatus  `db:"status" json:"status"`
	RequestedBy       string         `db:"requested_by" json:"requested_by"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	ExpiresAt         *time.Time     `db:"expires_at" json:"expires_at,omitempty"`
	FulfilledBy       *string        `db:"fulfilled_by" json:"fulfilled_by,omitempty"`
	FulfilledMaterial *string        `db:"fulfilled_material" json:"fulfilled_material,omitempty"`
	FulfilledAt       *time.Time     `db:"fulfilled_at" json:"fulfilled_at,omitempty"`
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	Campus      string
	Course      string
	Subject     string
	Urgency     RequestUrgency
	Status      RequestStatus
	RequestedBy string
	Search      string
	Limit       int
	Offset      int
}
