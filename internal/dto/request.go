package dto

import (
	"time"

	"github.com/uninet-dev/campus-hub-api/internal/models"
)

// CreateRequestRequest is the payload for posting a new material request.
type CreateRequestRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Subject     string                `json:"subject"`
	Campus      string                `json:"campus"`
	Course      string                `json:"course"`
	Year        string                `json:"year"`
	Semester    string                `json:"semester"`
	Urgency     models.RequestUrgency `json:"urgency"`
	ExpiresAt   *time.Time            `json:"expires_at"`
}

// UpdateRequestRequest carries the owner-editable fields. Only
// title/description/urgency may change, and only while pending.
type UpdateRequestRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Urgency     *models.RequestUrgency `json:"urgency"`
}

// FulfillRequestRequest links an uploaded material to a pending request.
type FulfillRequestRequest struct {
	FulfilledMaterial string `json:"fulfilled_material"`
}

// RequestQuery mirrors supported listing filters.
type RequestQuery struct {
	Campus  string
	Course  string
	Subject string
	Urgency models.RequestUrgency
	Status  models.RequestStatus
	Search  string
	Limit   int
	Offset  int
}
