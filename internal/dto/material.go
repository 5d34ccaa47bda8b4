package dto

import "github.com/uninet-dev/campus-hub-api/internal/models"

// CreateMaterialRequest contains metadata submitted alongside file uploads.
type CreateMaterialRequest struct {
	Title            string  `form:"title" json:"title"`
	Description      string  `form:"description" json:"description"`
	Subject          string  `form:"subject" json:"subject"`
	Campus           string  `form:"campus" json:"campus"`
	Course           string  `form:"course" json:"course"`
	Year             string  `form:"year" json:"year"`
	Semester         string  `form:"semester" json:"semester"`
	Keywords         string  `form:"keywords" json:"keywords"`
	FulfilledRequest *string `form:"fulfilled_request" json:"fulfilled_request"`
}

// MaterialQuery mirrors supported listing filters.
type MaterialQuery struct {
	Campus  string
	Course  string
	Subject string
	Search  string
	Limit   int
	Offset  int
}

// MaterialResponse enriches a material with signed download URLs.
type MaterialResponse struct {
	models.Material
	DownloadURLs []string `json:"download_urls,omitempty"`
}

// DownloadResponse returns the updated counters together with a signed file
// location, matching the download contract.
type DownloadResponse struct {
	Counters    models.MaterialCounters `json:"counters"`
	DownloadURL string                  `json:"download_url"`
}
