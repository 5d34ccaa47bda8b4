package dto

import "github.com/uninet-dev/campus-hub-api/internal/models"

// CreateComplaintRequest files a moderation ticket against a single target.
type CreateComplaintRequest struct {
	Type        models.ComplaintType `json:"type"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	TargetID    string               `json:"target_id"`
}

// ResolveComplaintRequest carries the administrator decision.
type ResolveComplaintRequest struct {
	Status models.ComplaintStatus `json:"status"`
}

// ComplaintQuery mirrors supported listing filters.
type ComplaintQuery struct {
	Type     models.ComplaintType
	Status   models.ComplaintStatus
	Category string
	Limit    int
	Offset   int
}

// ComplaintExportQuery selects which complaints to export and the format.
type ComplaintExportQuery struct {
	Query  ComplaintQuery
	Format string
}
