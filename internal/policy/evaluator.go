// Package policy implements the hard eligibility rules for desk
// assignment.  Every rule is a binary check: failing any single one
// excludes the candidate outright, with no partial credit.  Soft
// preference ranking lives in the allocation package.
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/desk-allocation/internal/model"
)

// Tunable policy constants.  The distancing radius is a fixed window,
// not derived from desk pitch; occupancy is a ratio of assigned desks
// per floor including the candidate under evaluation.
const (
	DistancingRadius   = 6
	MaxFloorOccupancy  = 0.8
	SanitizationPeriod = 12 * time.Hour
	ConsecutiveUseGap  = 24 * time.Hour
)

// Store is the slice of the desk store the evaluator needs for the
// checks that look beyond the candidate itself.  The reads are
// best-effort snapshots: two commits racing near the density threshold
// may both pass, which the design tolerates.  Only the commit CAS
// guarantees exclusion.
type Store interface {
	CountAssignedNear(ctx context.Context, x, y, radius int) (int, error)
	CountByFloor(ctx context.Context, floor string) (total, assigned int, err error)
	RecentUsage(ctx context.Context, employeeID uint64, limit int) ([]time.Time, error)
}

// Evaluator runs all hard checks against a candidate desk.  It holds no
// mutable state; the clock is injectable for tests.
type Evaluator struct {
	store Store
	now   func() time.Time
}

// NewEvaluator returns an Evaluator over the given store.  A nil clock
// defaults to time.Now.
func NewEvaluator(store Store, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{store: store, now: now}
}

// Evaluate runs every hard check for assigning desk to emp on the target
// date.  It returns an empty reason when the desk is eligible, or the
// first failing rule's reason.  A non-nil error means a store read
// failed and eligibility could not be determined.
//
// The pure checks run first so obviously ineligible desks cost no store
// round-trips; the order is otherwise irrelevant since checks are
// side-effect-free.
func (e *Evaluator) Evaluate(ctx context.Context, desk *model.Desk, emp *model.Employee, date time.Time) (string, error) {
	if reason := CheckExecutive(desk, emp); reason != "" {
		return reason, nil
	}
	if reason := CheckAccessibility(desk, emp); reason != "" {
		return reason, nil
	}
	if reason := CheckDualMonitor(desk, emp); reason != "" {
		return reason, nil
	}
	if reason := CheckEmergency(desk); reason != "" {
		return reason, nil
	}
	if reason := CheckSanitization(desk, e.now()); reason != "" {
		return reason, nil
	}
	reason, err := e.checkDistancing(ctx, desk)
	if reason != "" || err != nil {
		return reason, err
	}
	reason, err = e.checkFloorDensity(ctx, desk)
	if reason != "" || err != nil {
		return reason, err
	}
	return e.checkConsecutiveUse(ctx, emp)
}

// CheckExecutive rejects executive desks for non-executive employees.
func CheckExecutive(desk *model.Desk, emp *model.Employee) string {
	if desk.Features.IsExecutive && !emp.IsExecutive {
		return "executive desk requires executive status"
	}
	return ""
}

// CheckAccessibility rejects non-accessible desks for employees with
// accessibility needs.
func CheckAccessibility(desk *model.Desk, emp *model.Employee) string {
	if emp.Preferences.AccessibilityNeeds && !desk.Features.IsAccessible {
		return "employee requires an accessible desk"
	}
	return ""
}

// CheckDualMonitor rejects single-monitor desks for employees that
// require a dual monitor setup.
func CheckDualMonitor(desk *model.Desk, emp *model.Employee) string {
	if emp.Preferences.RequiresDualMonitor && !desk.Features.HasDualMonitor {
		return "employee requires a dual monitor desk"
	}
	return ""
}

// CheckEmergency rejects desks reserved for incident response and desks
// adjacent to emergency exits; neither is ever assignable.
func CheckEmergency(desk *model.Desk) string {
	if desk.Features.IsEmergencyDesk {
		return "emergency desks are not assignable"
	}
	if desk.Features.NearEmergencyExit {
		return "desks near emergency exits are not assignable"
	}
	return ""
}

// CheckSanitization rejects desks used within the sanitization period.
// Desks never used pass trivially.
func CheckSanitization(desk *model.Desk, now time.Time) string {
	if desk.LastUsed == nil {
		return ""
	}
	if now.Sub(*desk.LastUsed) < SanitizationPeriod {
		return fmt.Sprintf("desk was used within the last %dh sanitization window",
			int(SanitizationPeriod.Hours()))
	}
	return ""
}

// checkDistancing rejects the desk when any other desk inside the
// square distancing window is currently assigned.
func (e *Evaluator) checkDistancing(ctx context.Context, desk *model.Desk) (string, error) {
	n, err := e.store.CountAssignedNear(ctx, desk.X, desk.Y, DistancingRadius)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return "an assigned desk is within the social distancing window", nil
	}
	return "", nil
}

// checkFloorDensity rejects the desk when assigning it would push the
// floor's assigned ratio over the occupancy cap.  The candidate is
// counted hypothetically: a floor that would land at exactly the cap is
// allowed, one desk past it is not.  Empty floors pass trivially.
func (e *Evaluator) checkFloorDensity(ctx context.Context, desk *model.Desk) (string, error) {
	total, assigned, err := e.store.CountByFloor(ctx, desk.Floor)
	if err != nil {
		return "", err
	}
	if total == 0 {
		return "", nil
	}
	if float64(assigned+1)/float64(total) > MaxFloorOccupancy {
		return fmt.Sprintf("floor %s is at the %.0f%% occupancy cap",
			desk.Floor, MaxFloorOccupancy*100), nil
	}
	return "", nil
}

// checkConsecutiveUse rejects the assignment when the employee's two
// most recent desk usage timestamps are a day or less apart, which
// indicates back-to-back office days.  Fewer than two records pass.
func (e *Evaluator) checkConsecutiveUse(ctx context.Context, emp *model.Employee) (string, error) {
	usage, err := e.store.RecentUsage(ctx, emp.ID, 2)
	if err != nil {
		return "", err
	}
	if len(usage) < 2 {
		return "", nil
	}
	gap := usage[0].Sub(usage[1])
	if gap < 0 {
		gap = -gap
	}
	if gap <= ConsecutiveUseGap {
		return "employee has used desks on consecutive days", nil
	}
	return "", nil
}
