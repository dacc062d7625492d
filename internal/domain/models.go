package domain

import (
	"fmt"
	"time"
)

// ID is a server-assigned identity. The client never mints one.
type ID int64

// TargetType selects what a feedback entry references
type TargetType string

const (
	TargetMember TargetType = "member"
	TargetTeam   TargetType = "team"
)

// Valid reports whether t is one of the known target kinds
func (t TargetType) Valid() bool {
	return t == TargetMember || t == TargetTeam
}

// ParseTargetType converts a raw string into a TargetType
func ParseTargetType(s string) (TargetType, error) {
	t := TargetType(s)
	if !t.Valid() {
		return "", &ValidationError{Field: "target_type", Message: fmt.Sprintf("unknown target type %q", s)}
	}
	return t, nil
}

// TeamMember represents a coached person
type TeamMember struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Picture   string    `json:"picture,omitempty"`
	TeamID    *ID       `json:"team_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InTeam reports whether the member is currently assigned to teamID
func (m TeamMember) InTeam(teamID ID) bool {
	return m.TeamID != nil && *m.TeamID == teamID
}

// Clone returns a copy that shares no memory with m
func (m TeamMember) Clone() TeamMember {
	if m.TeamID != nil {
		teamID := *m.TeamID
		m.TeamID = &teamID
	}
	return m
}

// Team represents a group of members.
// Members is the server's denormalized mirror; membership is always derived
// from TeamMember.TeamID instead.
type Team struct {
	ID        ID           `json:"id"`
	Name      string       `json:"name"`
	Logo      string       `json:"logo,omitempty"`
	Members   []TeamMember `json:"members,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Clone returns a copy that shares no memory with t
func (t Team) Clone() Team {
	if t.Members != nil {
		members := make([]TeamMember, len(t.Members))
		for i, m := range t.Members {
			members[i] = m.Clone()
		}
		t.Members = members
	}
	return t
}

// Feedback is a free-text note about a member or a team
type Feedback struct {
	ID         ID         `json:"id"`
	Content    string     `json:"content"`
	TargetType TargetType `json:"target_type"`
	TargetID   ID         `json:"target_id"`
	TargetName string     `json:"target_name"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// FeedbackFilter narrows GET /api/feedback
type FeedbackFilter struct {
	TargetType TargetType
	TargetID   ID
}

// NewMember - POST /api/members
type NewMember struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// Validate checks required fields
func (m NewMember) Validate() error {
	if m.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if m.Email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	return nil
}

// MemberUpdate - PUT /api/members/{id}
type MemberUpdate struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// NewTeam - POST /api/teams
type NewTeam struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
}

// Validate checks required fields
func (t NewTeam) Validate() error {
	if t.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	return nil
}

// TeamUpdate - PUT /api/teams/{id}
type TeamUpdate struct {
	Name string `json:"name,omitempty"`
	Logo string `json:"logo,omitempty"`
}

// NewFeedback - POST /api/feedback
type NewFeedback struct {
	Content    string     `json:"content"`
	TargetType TargetType `json:"target_type"`
	TargetID   ID         `json:"target_id"`
}

// Validate checks required fields and the target kind
func (f NewFeedback) Validate() error {
	if f.Content == "" {
		return &ValidationError{Field: "content", Message: "content is required"}
	}
	if !f.TargetType.Valid() {
		return &ValidationError{Field: "target_type", Message: "target_type must be member or team"}
	}
	if f.TargetID <= 0 {
		return &ValidationError{Field: "target_id", Message: "target_id is required"}
	}
	return nil
}

// FeedbackUpdate - PUT /api/feedback/{id}
type FeedbackUpdate struct {
	Content string `json:"content,omitempty"`
}

// AssignRequest - POST /api/assignments
type AssignRequest struct {
	MemberID ID `json:"member_id"`
	TeamID   ID `json:"team_id"`
}
