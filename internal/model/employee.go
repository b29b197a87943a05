package model

import "time"

// Location preference categories used by the scorer.  "any" expresses
// no location preference and earns no score contribution.
const (
	LocationWindow        = "window"
	LocationQuiet         = "quiet"
	LocationCollaborative = "collaborative"
	LocationAny           = "any"
)

// Preferences captures an employee's soft desk preferences together
// with the two flags (accessibility, dual monitor) that double as hard
// requirements in the policy evaluator.
type Preferences struct {
	DeskType            string   `json:"desk_type"`             // sitting | standing | any
	LocationPreference  string   `json:"location_preference"`   // window | quiet | collaborative | any
	AccessibilityNeeds  bool     `json:"accessibility_needs"`   // hard requirement when true
	RequiresDualMonitor bool     `json:"requires_dual_monitor"` // hard requirement when true
	PreferredFloor      *string  `json:"preferred_floor,omitempty"`
	NoisePreference     string   `json:"noise_preference"` // quiet | moderate | any
	TeamZone            *string  `json:"team_zone,omitempty"`
	PreferredDays       []string `json:"preferred_days"`
}

// Schedule records when an employee is expected in the office.  The
// engine does not consult it; it is carried for the directory API.
type Schedule struct {
	InOfficeDays []string `json:"in_office_days"`
	WorkStart    string   `json:"work_start"` // HH:MM
	WorkEnd      string   `json:"work_end"`   // HH:MM
}

// Employee is a requester that can hold zero or more desks.  The set of
// desks held lives in the employee_assignments join table; the inverse
// side is Desk.AssignedTo, and the two are kept consistent by the
// engine's two-step commit protocol.
type Employee struct {
	ID           uint64      `json:"id"`            // employees.id
	EmployeeCode string      `json:"employee_code"` // external code, unique
	Name         string      `json:"name"`
	Email        string      `json:"email"` // unique
	Department   string      `json:"department"`
	IsExecutive  bool        `json:"is_executive"`
	Preferences  Preferences `json:"preferences"`
	Schedule     Schedule    `json:"schedule"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
