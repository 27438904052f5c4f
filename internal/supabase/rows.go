package supabase

import (
	"context"
	"time"
)

// Row types mirror the Supabase tables. Timestamps are set by database
// defaults; zero values are omitted on writes.

// Organization is a care provider registered on the platform.
type Organization struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector,omitempty"`
	CQCRating string    `json:"cqc_rating,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Profile is the per-user profile row keyed by the auth user id.
type Profile struct {
	ID             string    `json:"id,omitempty"`
	FullName       string    `json:"full_name,omitempty"`
	JobTitle       string    `json:"job_title,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// Proposal is a tender proposal being drafted.
type Proposal struct {
	ID             string     `json:"id,omitempty"`
	OrganizationID string     `json:"organization_id,omitempty"`
	Title          string     `json:"title"`
	Sector         string     `json:"sector,omitempty"`
	Status         string     `json:"status,omitempty"` // draft, in_review, submitted
	Deadline       *time.Time `json:"deadline,omitempty"`
	CreatedAt      time.Time  `json:"created_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at,omitempty"`
}

// AnswerItem is a reusable answer-bank entry (including case studies).
type AnswerItem struct {
	ID             string    `json:"id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Title          string    `json:"title"`
	Sector         string    `json:"sector,omitempty"`
	Content        string    `json:"content"`
	IsCaseStudy    bool      `json:"is_case_study,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// Table names as they exist in the Supabase schema.
const (
	TableOrganizations = "organizations"
	TableProfiles      = "profiles"
	TableProposals     = "proposals"
	TableAnswerBank    = "answer_bank"
)

// ListAnswerItems reads the whole answer bank with the service key; used by
// the local index sync, which runs outside any user session.
func (c *Client) ListAnswerItems(ctx context.Context) ([]AnswerItem, error) {
	var items []AnswerItem
	if err := c.Select(ctx, TableAnswerBank, nil, "", &items); err != nil {
		return nil, err
	}
	return items, nil
}
