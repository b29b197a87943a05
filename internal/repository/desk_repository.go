package repository // repository defines data access for desks

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/desk-allocation/internal/model"
)

// DeskRepo provides methods to work with desks in the database.  It
// implements the store contracts consumed by the allocation engine and
// the policy evaluator: predicate queries, conditional status
// transitions, floor counts, proximity counts and recent-usage lookups.
// All timestamps are stored in UTC.
type DeskRepo struct {
	db *sql.DB
}

// NewDeskRepo constructs a DeskRepo with the given DB handle.
func NewDeskRepo(db *sql.DB) *DeskRepo {
	return &DeskRepo{db: db}
}

// DB exposes the underlying handle for callers that need transactions.
func (r *DeskRepo) DB() *sql.DB { return r.db }

const deskColumns = `id, desk_code, floor, status, assigned_to, x, y,
	desk_type, is_accessible, has_dual_monitor, is_executive, is_ventilated,
	near_hvac, near_emergency_exit, is_emergency_desk, has_window,
	near_high_traffic, team_zone, noise_level, last_used, created_at, updated_at`

// scanDesk reads one desks row into a model.Desk.  The scanner argument
// lets the same code serve QueryRow and Rows.
func scanDesk(sc interface{ Scan(...any) error }) (*model.Desk, error) {
	var d model.Desk
	var assignedTo sql.NullInt64
	var teamZone sql.NullString
	var lastUsed sql.NullTime
	err := sc.Scan(
		&d.ID, &d.DeskCode, &d.Floor, &d.Status, &assignedTo, &d.X, &d.Y,
		&d.Features.DeskType, &d.Features.IsAccessible, &d.Features.HasDualMonitor,
		&d.Features.IsExecutive, &d.Features.IsVentilated, &d.Features.NearHVAC,
		&d.Features.NearEmergencyExit, &d.Features.IsEmergencyDesk,
		&d.Features.HasWindow, &d.Features.NearHighTraffic,
		&teamZone, &d.Features.NoiseLevel, &lastUsed, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if assignedTo.Valid {
		v := uint64(assignedTo.Int64)
		d.AssignedTo = &v
	}
	if teamZone.Valid {
		z := teamZone.String
		d.Features.TeamZone = &z
	}
	if lastUsed.Valid {
		t := lastUsed.Time.UTC()
		d.LastUsed = &t
	}
	return &d, nil
}

// Create inserts a single desk record.  New desks always start in the
// available state.  On success the desk's ID is populated.
func (r *DeskRepo) Create(ctx context.Context, d *model.Desk) error {
	const q = `INSERT INTO desks
		(desk_code, floor, status, x, y, desk_type, is_accessible, has_dual_monitor,
		 is_executive, is_ventilated, near_hvac, near_emergency_exit, is_emergency_desk,
		 has_window, near_high_traffic, team_zone, noise_level)
		VALUES (?, ?, 'available', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		d.DeskCode, d.Floor, d.X, d.Y,
		d.Features.DeskType, d.Features.IsAccessible, d.Features.HasDualMonitor,
		d.Features.IsExecutive, d.Features.IsVentilated, d.Features.NearHVAC,
		d.Features.NearEmergencyExit, d.Features.IsEmergencyDesk,
		d.Features.HasWindow, d.Features.NearHighTraffic,
		d.Features.TeamZone, d.Features.NoiseLevel,
	)
	if err != nil {
		if isDuplicateErr(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	d.Status = model.StatusAvailable
	return nil
}

// Update rewrites a desk's location and feature bag.  Status and
// assignment fields are deliberately not touched here; those change only
// through the conditional transitions below.
func (r *DeskRepo) Update(ctx context.Context, d *model.Desk) error {
	const q = `UPDATE desks SET
		floor = ?, x = ?, y = ?, desk_type = ?, is_accessible = ?,
		has_dual_monitor = ?, is_executive = ?, is_ventilated = ?, near_hvac = ?,
		near_emergency_exit = ?, is_emergency_desk = ?, has_window = ?,
		near_high_traffic = ?, team_zone = ?, noise_level = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		d.Floor, d.X, d.Y, d.Features.DeskType, d.Features.IsAccessible,
		d.Features.HasDualMonitor, d.Features.IsExecutive, d.Features.IsVentilated,
		d.Features.NearHVAC, d.Features.NearEmergencyExit, d.Features.IsEmergencyDesk,
		d.Features.HasWindow, d.Features.NearHighTraffic,
		d.Features.TeamZone, d.Features.NoiseLevel, d.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is also 0 when the row exists but nothing changed;
		// distinguish by probing for the row.
		if _, err := r.GetByID(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a desk.  Desks that are currently assigned cannot be
// deleted; release them first.  Returns ErrDeskNotFound when the desk
// does not exist and ErrConflict when it is still assigned.
func (r *DeskRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM desks WHERE id = ? AND status <> 'assigned'`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// GetByID retrieves a desk by its id.
func (r *DeskRepo) GetByID(ctx context.Context, id uint64) (*model.Desk, error) {
	d, err := scanDesk(r.db.QueryRowContext(ctx,
		`SELECT `+deskColumns+` FROM desks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeskNotFound
		}
		return nil, err
	}
	return d, nil
}

// GetByCode retrieves a desk by its human-readable desk code.
func (r *DeskRepo) GetByCode(ctx context.Context, code string) (*model.Desk, error) {
	d, err := scanDesk(r.db.QueryRowContext(ctx,
		`SELECT `+deskColumns+` FROM desks WHERE desk_code = ?`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeskNotFound
		}
		return nil, err
	}
	return d, nil
}

// queryDesks runs a SELECT returning full desk rows and collects them.
func (r *DeskRepo) queryDesks(ctx context.Context, q string, args ...any) ([]model.Desk, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Desk
	for rows.Next() {
		d, err := scanDesk(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListAll returns every desk ordered by id.
func (r *DeskRepo) ListAll(ctx context.Context) ([]model.Desk, error) {
	return r.queryDesks(ctx, `SELECT `+deskColumns+` FROM desks ORDER BY id`)
}

// ListByFloor returns every desk on the given floor ordered by id.
func (r *DeskRepo) ListByFloor(ctx context.Context, floor string) ([]model.Desk, error) {
	return r.queryDesks(ctx,
		`SELECT `+deskColumns+` FROM desks WHERE floor = ? ORDER BY id`, floor)
}

// ListAvailable returns every desk in the available state ordered by id.
// The ascending-id ordering is load-bearing: the engine's tie-break for
// equal preference scores is lowest id first.
func (r *DeskRepo) ListAvailable(ctx context.Context) ([]model.Desk, error) {
	return r.queryDesks(ctx,
		`SELECT `+deskColumns+` FROM desks WHERE status = 'available' ORDER BY id`)
}

// QueryAvailable returns available desks matching the structured
// preference predicate.  Absent fields impose no filter.  The WHERE
// clause is assembled dynamically in the same style the insert builders
// use for bulk statements.
func (r *DeskRepo) QueryAvailable(ctx context.Context, q model.DeskQuery) ([]model.Desk, error) {
	clauses := []string{"status = 'available'"}
	args := make([]any, 0, 8)
	if q.Floor != nil {
		clauses = append(clauses, "floor = ?")
		args = append(args, *q.Floor)
	}
	if q.PreferredFloor != nil {
		clauses = append(clauses, "floor = ?")
		args = append(args, *q.PreferredFloor)
	}
	if q.DeskType != nil {
		clauses = append(clauses, "desk_type = ?")
		args = append(args, *q.DeskType)
	}
	if q.RequiresDualMonitor != nil && *q.RequiresDualMonitor {
		clauses = append(clauses, "has_dual_monitor = TRUE")
	}
	if q.RequiresAccessibility != nil && *q.RequiresAccessibility {
		clauses = append(clauses, "is_accessible = TRUE")
	}
	if q.NoiseLevel != nil {
		clauses = append(clauses, "noise_level = ?")
		args = append(args, *q.NoiseLevel)
	}
	if q.TeamZone != nil {
		clauses = append(clauses, "team_zone = ?")
		args = append(args, *q.TeamZone)
	}
	query := `SELECT ` + deskColumns + ` FROM desks WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY id`
	return r.queryDesks(ctx, query, args...)
}

// CompareAndSetAssigned performs the atomic commit transition
// available→assigned.  The UPDATE only fires while the desk is still
// available, which makes it the single point of mutual exclusion per
// desk: of N racing callers exactly one observes rows-affected == 1.
// last_used is set to the assignment start for sanitization accounting.
func (r *DeskRepo) CompareAndSetAssigned(ctx context.Context, deskID, employeeID uint64, ts time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE desks SET status = 'assigned', assigned_to = ?, last_used = ?
		 WHERE id = ? AND status = 'available'`,
		employeeID, ts.UTC(), deskID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompareAndSetAvailable performs the release transition
// assigned→available.  assigned_to is cleared; last_used is left intact
// so the sanitization window keeps counting from the assignment start.
func (r *DeskRepo) CompareAndSetAvailable(ctx context.Context, deskID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE desks SET status = 'available', assigned_to = NULL
		 WHERE id = ? AND status = 'assigned'`, deskID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetStatus performs an administrative transition guarded by the
// expected current status, e.g. available→maintenance.  It uses the same
// conditional-update idiom as the commit so concurrent admin calls
// cannot clobber each other.
func (r *DeskRepo) SetStatus(ctx context.Context, deskID uint64, from, to model.DeskStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE desks SET status = ? WHERE id = ? AND status = ?`,
		to, deskID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountByFloor returns the total number of desks on a floor and how many
// of them are currently assigned.  Used by the density-cap check.
func (r *DeskRepo) CountByFloor(ctx context.Context, floor string) (total, assigned int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(status = 'assigned'), 0)
		 FROM desks WHERE floor = ?`, floor).Scan(&total, &assigned)
	return total, assigned, err
}

// CountAssignedNear counts assigned desks whose coordinates fall within
// the square window of the given radius around (x, y).  The candidate
// desk itself is never counted because it is not yet assigned.
func (r *DeskRepo) CountAssignedNear(ctx context.Context, x, y, radius int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM desks
		 WHERE status = 'assigned'
		   AND x BETWEEN ? AND ? AND y BETWEEN ? AND ?`,
		x-radius, x+radius, y-radius, y+radius).Scan(&n)
	return n, err
}

// RecentUsage returns the most recent last_used timestamps, newest
// first, across the desks currently assigned to the employee.  The
// consecutive-use policy inspects the top two.
func (r *DeskRepo) RecentUsage(ctx context.Context, employeeID uint64, limit int) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT last_used FROM desks
		 WHERE assigned_to = ? AND status = 'assigned' AND last_used IS NOT NULL
		 ORDER BY last_used DESC LIMIT ?`, employeeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FloorOccupancy summarizes one floor for the occupancy report.
type FloorOccupancy struct {
	Floor    string  `json:"floor"`
	Total    int     `json:"total"`
	Assigned int     `json:"assigned"`
	Ratio    float64 `json:"ratio"`
}

// OccupancyByFloor returns per-floor desk totals and assignment counts
// ordered by floor label.  Ratio is 0 for floors with no desks.
func (r *DeskRepo) OccupancyByFloor(ctx context.Context) ([]FloorOccupancy, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT floor, COUNT(*), COALESCE(SUM(status = 'assigned'), 0)
		 FROM desks GROUP BY floor ORDER BY floor`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FloorOccupancy
	for rows.Next() {
		var f FloorOccupancy
		if err := rows.Scan(&f.Floor, &f.Total, &f.Assigned); err != nil {
			return nil, err
		}
		if f.Total > 0 {
			f.Ratio = float64(f.Assigned) / float64(f.Total)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// isDuplicateErr detects MySQL duplicate-key errors (code 1062).
func isDuplicateErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
