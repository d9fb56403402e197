package domain

import "time"

// Candidate statuses, in the order the review pipeline moves through them.
const (
	StatusPending   = "pending"
	StatusReviewed  = "reviewed"
	StatusContacted = "contacted"
	StatusRejected  = "rejected"
)

// RoleAdmin is the JWT role allowed on the review endpoints.
const RoleAdmin = "admin"

// ValidStatus reports whether s is one of the known candidate statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusReviewed, StatusContacted, StatusRejected:
		return true
	}
	return false
}

type Candidate struct {
	CandidateID string     `json:"id" dynamodbav:"candidate_id"`
	Name        string     `json:"name" dynamodbav:"name"`
	Email       string     `json:"email" dynamodbav:"email"`
	Phone       string     `json:"phone" dynamodbav:"phone"`
	Course      string     `json:"course" dynamodbav:"course"`
	College     string     `json:"college" dynamodbav:"college"`
	University  string     `json:"university" dynamodbav:"university"`
	PhotoKey    string     `json:"-" dynamodbav:"photo_key"`
	PhotoURL    string     `json:"photo_url,omitempty" dynamodbav:"-"`
	Status      string     `json:"status" dynamodbav:"status"`
	Notes       string     `json:"notes,omitempty" dynamodbav:"notes"`
	Enable      bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt   time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// RegistrationRequest is the payload of the complete-registration endpoint.
// PhotoKey is set by the handler after a successful upload; it is never
// client-controlled.
type RegistrationRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,min=7,max=20"`
	Course     string `json:"course" validate:"required"`
	College    string `json:"college" validate:"required"`
	University string `json:"university" validate:"required"`
	PhotoKey   string `json:"-"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}
