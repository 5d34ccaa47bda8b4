package models

import "time"

// ComplaintType discriminates which entity kind a complaint targets.
type ComplaintType string

const (
	ComplaintTypeMaterial  ComplaintType = "material"
	ComplaintTypeUser      ComplaintType = "user"
	ComplaintTypeForumPost ComplaintType = "forum_post"
)

// ValidComplaintType reports whether the value belongs to the type enum.
func ValidComplaintType(t ComplaintType) bool {
	switch t {
	case ComplaintTypeMaterial, ComplaintTypeUser, ComplaintTypeForumPost:
		return true
	}
	return false
}

// ComplaintStatus captures the moderation ticket lifecycle.
type ComplaintStatus string

const (
	ComplaintStatusPending  ComplaintStatus = "pending"
	ComplaintStatusResolved ComplaintStatus = "resolved"
	ComplaintStatusRejected ComplaintStatus = "rejected"
)

// Complaint is a moderation ticket referencing exactly one target entity.
// Exactly one of AgainstMaterial/AgainstUser/AgainstPost is non-null and it
// must match Type; SetTarget enforces this at construction.
type Complaint struct {
	ID              string          `db:"id" json:"id"`
	Type            ComplaintType   `db:"type" json:"type"`
	Title           string          `db:"title" json:"title"`
	Description     string          `db:"description" json:"description"`
	Category        string          `db:"category" json:"category"`
	Status          ComplaintStatus `db:"status" json:"status"`
	ReportedBy      string          `db:"reported_by" json:"reported_by"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	ResolvedBy      *string         `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
	AgainstMaterial *string         `db:"against_material" json:"against_material,omitempty"`
	AgainstUser     *string         `db:"against_user" json:"against_user,omitempty"`
	AgainstPost     *string         `db:"against_post" json:"against_post,omitempty"`
}

// TargetID returns the single populated target reference.
func (c *Complaint) TargetID() string {
	switch c.Type {
	case ComplaintTypeMaterial:
		if c.AgainstMaterial != nil {
			return *c.AgainstMaterial
		}
	case ComplaintTypeUser:
		if c.AgainstUser != nil {
			return *c.AgainstUser
		}
	case ComplaintTypeForumPost:
		if c.AgainstPost != nil {
			return *c.AgainstPost
		}
	}
	return ""
}

// SetTarget populates the target column matching the complaint type and
// clears the other two.
func (c *Complaint) SetTarget(targetID string) {
	c.AgainstMaterial = nil
	c.AgainstUser = nil
	c.AgainstPost = nil
	switch c.Type {
	case ComplaintTypeMaterial:
		c.AgainstMaterial = &targetID
	case ComplaintTypeUser:
		c.AgainstUser = &targetID
	case ComplaintTypeForumPost:
		c.AgainstPost = &targetID
	}
}

// ComplaintFilter constrains listing queries.
type ComplaintFilter struct {
	Type       ComplaintType
	Status     ComplaintStatus
	Category   string
	ReportedBy string
	Limit      int
	Offset     int
}

// ComplaintDetail is the normalized polymorphic detail view rendered by the
// moderation queue. Found=false means the target vanished after the
// complaint was filed; the complaint itself stays reviewable.
type ComplaintDetail struct {
	Found    bool                `json:"found"`
	Type     ComplaintType       `json:"type"`
	Material *Material           `json:"material,omitempty"`
	User     *UserProfileSummary `json:"user,omitempty"`
	Post     *ForumPost          `json:"post,omitempty"`
}
