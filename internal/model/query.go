package model

// DeskQuery is the structured preference predicate accepted by the
// assignment-by-preference operation.  Every field is optional; an
// absent field imposes no filter.  This is the shape the external
// natural-language front end produces after interpreting free text.
type DeskQuery struct {
	Floor                 *string `json:"floor,omitempty"`
	DeskType              *string `json:"desk_type,omitempty"`
	RequiresDualMonitor   *bool   `json:"requires_dual_monitor,omitempty"`
	RequiresAccessibility *bool   `json:"requires_accessibility,omitempty"`
	NoiseLevel            *string `json:"noise_level,omitempty"`
	TeamZone              *string `json:"team_zone,omitempty"`
	PreferredFloor        *string `json:"preferred_floor,omitempty"`
}

// IsZero reports whether the query imposes no filter at all.
func (q DeskQuery) IsZero() bool {
	return q.Floor == nil && q.DeskType == nil && q.RequiresDualMonitor == nil &&
		q.RequiresAccessibility == nil && q.NoiseLevel == nil &&
		q.TeamZone == nil && q.PreferredFloor == nil
}
