package models

import (
	"time"

	"github.com/lib/pq"
)

// Material is an uploaded study resource with engagement counters.
// Counters are increment-only in this subsystem; rating is supplied by the
// external review aggregation and never recomputed here.
type Material struct {
	ID               string         `db:"id" json:"id"`
	Title            string         `db:"title" json:"title"`
	Description      string         `db:"description" json:"description"`
	Subject          string         `db:"subject" json:"subject"`
	Campus           string         `db:"campus" json:"campus"`
	Course           string         `db:"course" json:"course"`
	Year             string         `db:"year" json:"year"`
	Semester         string         `db:"semester" json:"semester"`
	UploadedBy       string         `db:"uploaded_by" json:"uploaded_by"`
	Keywords         pq.StringArray `db:"keywords" json:"keywords"`
	FilePaths        pq.StringArray `db:"file_paths" json:"file_paths"`
	LikeCount        int            `db:"like_count" json:"like_count"`
	UnlikeCount      int            `db:"unlike_count" json:"unlike_count"`
	DownloadCount    int            `db:"download_count" json:"download_count"`
	Rating           float64        `db:"rating" json:"rating"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	FulfilledRequest *string        `db:"fulfilled_request" json:"fulfilled_request,omitempty"`
}

// MaterialCounters is the payload returned by engagement endpoints.
type MaterialCounters struct {
	LikeCount     int `json:"like_count"`
	UnlikeCount   int `json:"unlike_count"`
	DownloadCount int `json:"download_count"`
}

// Counters extracts the engagement counter view.
func (m *Material) Counters() MaterialCounters {
	return MaterialCounters{
		LikeCount:     m.LikeCount,
		UnlikeCount:   m.UnlikeCount,
		DownloadCount: m.DownloadCount,
	}
}

// MaterialFilter constrains listing queries.
type MaterialFilter struct {
	Campus     string
	Course     string
	Subject    string
	UploadedBy string
	Search     string
	Limit      int
	Offset     int
}
