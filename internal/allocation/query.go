package allocation

import (
	"strings"

	"github.com/iliyamo/desk-allocation/internal/model"
)

// ValidateQuery checks a preference predicate before it reaches the
// store.  Absent fields are always valid; present fields must carry a
// meaningful value.  Violations return a KindInvalidQuery error naming
// the offending field.
func ValidateQuery(q model.DeskQuery) error {
	if q.Floor != nil && strings.TrimSpace(*q.Floor) == "" {
		return invalidQuery("floor must not be empty")
	}
	if q.PreferredFloor != nil && strings.TrimSpace(*q.PreferredFloor) == "" {
		return invalidQuery("preferred_floor must not be empty")
	}
	if q.TeamZone != nil && strings.TrimSpace(*q.TeamZone) == "" {
		return invalidQuery("team_zone must not be empty")
	}
	if q.DeskType != nil {
		switch *q.DeskType {
		case model.DeskTypeSitting, model.DeskTypeStanding, model.DeskTypeAny:
		default:
			return invalidQuery("unknown desk_type %q", *q.DeskType)
		}
	}
	if q.NoiseLevel != nil {
		switch *q.NoiseLevel {
		case model.NoiseQuiet, model.NoiseModerate, model.NoiseHigh:
		default:
			return invalidQuery("unknown noise_level %q", *q.NoiseLevel)
		}
	}
	return nil
}
