package types

import "time"

// UserRole represents the different user roles in the system
type UserRole string

const (
	RolePatient   UserRole = "patient"
	RoleCaretaker UserRole = "caretaker"
)

// User represents a system user. Patients list the caretakers watching over
// them; caretakers list the patients they manage. The two adjacency lists are
// maintained together so the relationship stays bidirectional.
type User struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Email               string         `json:"email,omitempty"`
	Role                UserRole       `json:"role"`
	ConnectedCaretakers []string       `json:"connectedCaretakers,omitempty"`
	ConnectedPatients   []string       `json:"connectedPatients,omitempty"`
	Notifications       []Notification `json:"notifications,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
}

// UserRegistrationRequest represents user registration data
type UserRegistrationRequest struct {
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Role  UserRole `json:"role"`
}
