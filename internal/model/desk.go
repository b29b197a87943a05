package model

import "time"

// DeskStatus enumerates the lifecycle states of a desk.  A desk is
// created available and moves to assigned only through the engine's
// conditional commit; maintenance and quarantine are administrative
// states that require the desk to be released first.
type DeskStatus string

const (
	StatusAvailable   DeskStatus = "available"
	StatusAssigned    DeskStatus = "assigned"
	StatusMaintenance DeskStatus = "maintenance"
	StatusQuarantine  DeskStatus = "quarantine"
)

// ValidStatus reports whether s is one of the four known desk states.
func ValidStatus(s DeskStatus) bool {
	switch s {
	case StatusAvailable, StatusAssigned, StatusMaintenance, StatusQuarantine:
		return true
	}
	return false
}

// CanTransition reports whether the state machine permits moving a desk
// from one status to another.  assigned→available is the release path;
// available→assigned happens only via the commit protocol and is listed
// here so the same table drives both the engine and the admin endpoints.
func CanTransition(from, to DeskStatus) bool {
	switch from {
	case StatusAvailable:
		return to == StatusAssigned || to == StatusMaintenance || to == StatusQuarantine
	case StatusAssigned:
		return to == StatusAvailable
	case StatusMaintenance, StatusQuarantine:
		return to == StatusAvailable
	}
	return false
}

// DeskType values. "any" means the desk converts between sitting and
// standing and matches either preference exactly.
const (
	DeskTypeSitting  = "sitting"
	DeskTypeStanding = "standing"
	DeskTypeAny      = "any"
)

// Noise levels recorded per desk and preferred per employee.
const (
	NoiseQuiet    = "quiet"
	NoiseModerate = "moderate"
	NoiseHigh     = "high"
)

// DeskFeatures is the immutable-per-edit attribute bag of a desk.  The
// flags drive both hard eligibility checks (executive, accessibility,
// emergency) and soft preference scoring (window, noise, team zone).
type DeskFeatures struct {
	DeskType          string  `json:"desk_type"`           // sitting | standing | any
	IsAccessible      bool    `json:"is_accessible"`       // wheelchair accessible
	HasDualMonitor    bool    `json:"has_dual_monitor"`    // dual monitor arm installed
	IsExecutive       bool    `json:"is_executive"`        // reserved for executives
	IsVentilated      bool    `json:"is_ventilated"`       // dedicated ventilation
	NearHVAC          bool    `json:"near_hvac"`           // adjacent to HVAC unit
	NearEmergencyExit bool    `json:"near_emergency_exit"` // must stay clear, never assignable
	IsEmergencyDesk   bool    `json:"is_emergency_desk"`   // kept free for incident response
	HasWindow         bool    `json:"has_window"`          // window seat
	NearHighTraffic   bool    `json:"near_high_traffic"`   // close to walkways/meeting areas
	TeamZone          *string `json:"team_zone,omitempty"` // optional team zone label
	NoiseLevel        string  `json:"noise_level"`         // quiet | moderate | high
}

// Desk is an allocatable physical seat with fixed coordinates on a
// floor.  AssignedTo is set if and only if Status == assigned; LastUsed
// records the start of the most recent assignment and drives the
// sanitization window.
type Desk struct {
	ID         uint64       `json:"id"`                    // desks.id
	DeskCode   string       `json:"desk_code"`             // human label, e.g. D-3-014, unique
	Floor      string       `json:"floor"`                 // floor/zone label
	Status     DeskStatus   `json:"status"`                // lifecycle state
	AssignedTo *uint64      `json:"assigned_to,omitempty"` // holder employee id
	X          int          `json:"x"`                     // grid coordinate
	Y          int          `json:"y"`                     // grid coordinate
	Features   DeskFeatures `json:"features"`
	LastUsed   *time.Time   `json:"last_used,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
