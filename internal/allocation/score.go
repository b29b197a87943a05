package allocation

import "github.com/iliyamo/desk-allocation/internal/model"

// Score computes the additive preference match between a desk and an
// employee.  Higher is better; eligible candidates are ranked by this
// value with ascending desk id breaking ties.  The function is
// deterministic, never short-circuits, and is bounded in practice by
// the sum of the per-rule weights (18).
func Score(desk *model.Desk, emp *model.Employee) int {
	score := 0

	// Desk type: exact match on the stated preference.
	if desk.Features.DeskType == emp.Preferences.DeskType {
		score += 3
	}

	// Location preference.
	switch emp.Preferences.LocationPreference {
	case model.LocationWindow:
		if desk.Features.HasWindow {
			score += 2
		}
	case model.LocationQuiet:
		if desk.Features.NoiseLevel == model.NoiseQuiet {
			score += 2
		}
	case model.LocationCollaborative:
		if desk.Features.NearHighTraffic {
			score += 2
		}
	}

	// Team zone affinity.
	if desk.Features.TeamZone != nil && emp.Preferences.TeamZone != nil &&
		*desk.Features.TeamZone == *emp.Preferences.TeamZone {
		score += 2
	}

	// Noise preference.
	if emp.Preferences.NoisePreference == desk.Features.NoiseLevel {
		score += 1
	}

	// Accessibility and dual monitor earn score on top of being hard
	// requirements, so among eligible desks the equipped ones rank first.
	if emp.Preferences.AccessibilityNeeds && desk.Features.IsAccessible {
		score += 3
	}
	if emp.Preferences.RequiresDualMonitor && desk.Features.HasDualMonitor {
		score += 2
	}

	// Preferred floor.
	if emp.Preferences.PreferredFloor != nil && *emp.Preferences.PreferredFloor == desk.Floor {
		score += 1
	}

	return score
}
