package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/desk-allocation/internal/model"
)

// EmployeeRepo provides data access to the employees table and the
// employee_assignments join table.  The join table is the employee side
// of the bidirectional assignment invariant; desks.assigned_to is the
// other side.  List columns (preferred/in-office days) are stored as
// comma-separated strings, split on read.
type EmployeeRepo struct {
	db *sql.DB
}

// NewEmployeeRepo returns a new EmployeeRepo bound to the given database.
func NewEmployeeRepo(db *sql.DB) *EmployeeRepo { return &EmployeeRepo{db: db} }

const employeeColumns = `id, employee_code, name, email, department, is_executive,
	pref_desk_type, pref_location, accessibility_needs, requires_dual_monitor,
	preferred_floor, noise_preference, team_zone, preferred_days,
	in_office_days, work_start, work_end, created_at, updated_at`

func scanEmployee(sc interface{ Scan(...any) error }) (*model.Employee, error) {
	var e model.Employee
	var preferredFloor, teamZone sql.NullString
	var preferredDays, inOfficeDays string
	err := sc.Scan(
		&e.ID, &e.EmployeeCode, &e.Name, &e.Email, &e.Department, &e.IsExecutive,
		&e.Preferences.DeskType, &e.Preferences.LocationPreference,
		&e.Preferences.AccessibilityNeeds, &e.Preferences.RequiresDualMonitor,
		&preferredFloor, &e.Preferences.NoisePreference, &teamZone, &preferredDays,
		&inOfficeDays, &e.Schedule.WorkStart, &e.Schedule.WorkEnd,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if preferredFloor.Valid {
		f := preferredFloor.String
		e.Preferences.PreferredFloor = &f
	}
	if teamZone.Valid {
		z := teamZone.String
		e.Preferences.TeamZone = &z
	}
	e.Preferences.PreferredDays = splitDays(preferredDays)
	e.Schedule.InOfficeDays = splitDays(inOfficeDays)
	return &e, nil
}

func splitDays(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinDays(days []string) string { return strings.Join(days, ",") }

// Create inserts an employee record.  On success the ID is populated.
func (r *EmployeeRepo) Create(ctx context.Context, e *model.Employee) error {
	const q = `INSERT INTO employees
		(employee_code, name, email, department, is_executive,
		 pref_desk_type, pref_location, accessibility_needs, requires_dual_monitor,
		 preferred_floor, noise_preference, team_zone, preferred_days,
		 in_office_days, work_start, work_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		e.EmployeeCode, e.Name, strings.ToLower(strings.TrimSpace(e.Email)),
		e.Department, e.IsExecutive,
		e.Preferences.DeskType, e.Preferences.LocationPreference,
		e.Preferences.AccessibilityNeeds, e.Preferences.RequiresDualMonitor,
		e.Preferences.PreferredFloor, e.Preferences.NoisePreference,
		e.Preferences.TeamZone, joinDays(e.Preferences.PreferredDays),
		joinDays(e.Schedule.InOfficeDays), e.Schedule.WorkStart, e.Schedule.WorkEnd,
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
	e.ID = uint64(id)
	return nil
}

// GetByID fetches an employee by id.
func (r *EmployeeRepo) GetByID(ctx context.Context, id uint64) (*model.Employee, error) {
	e, err := scanEmployee(r.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns all employees ordered by id.
func (r *EmployeeRepo) List(ctx context.Context) ([]model.Employee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+employeeColumns+` FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePreferences rewrites an employee's preference and schedule
// fields.  Identity fields (code, email, name) are not touched here.
func (r *EmployeeRepo) UpdatePreferences(ctx context.Context, id uint64, p model.Preferences, s model.Schedule) error {
	const q = `UPDATE employees SET
		pref_desk_type = ?, pref_location = ?, accessibility_needs = ?,
		requires_dual_monitor = ?, preferred_floor = ?, noise_preference = ?,
		team_zone = ?, preferred_days = ?, in_office_days = ?, work_start = ?, work_end = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		p.DeskType, p.LocationPreference, p.AccessibilityNeeds,
		p.RequiresDualMonitor, p.PreferredFloor, p.NoisePreference,
		p.TeamZone, joinDays(p.PreferredDays),
		joinDays(s.InOfficeDays), s.WorkStart, s.WorkEnd, id)
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
	}
	return nil
}

// AppendAssignment links a desk into the employee's assignment set.
// This is the non-atomic second step of the commit protocol; the engine
// retries it until it succeeds.  Re-inserting an existing link is a
// no-op so the retry is idempotent.
func (r *EmployeeRepo) AppendAssignment(ctx context.Context, employeeID, deskID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO employee_assignments (employee_id, desk_id, assigned_at)
		 VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE assigned_at = assigned_at`,
		employeeID, deskID, time.Now().UTC())
	return err
}

// RemoveAssignment unlinks a desk from every employee referencing it.
// Removing an absent link is a no-op, which makes release idempotent.
func (r *EmployeeRepo) RemoveAssignment(ctx context.Context, deskID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM employee_assignments WHERE desk_id = ?`, deskID)
	return err
}

// ListAssignments returns the desks currently linked to an employee,
// ordered by desk id.
func (r *EmployeeRepo) ListAssignments(ctx context.Context, employeeID uint64) ([]model.Desk, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+prefixColumns("d.", deskColumns)+`
		 FROM employee_assignments ea
		 JOIN desks d ON d.id = ea.desk_id
		 WHERE ea.employee_id = ?
		 ORDER BY d.id`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Desk
	for rows.Next() {
		d, err := scanDesk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// HolderOf returns the employee linked to a desk, or ErrEmployeeNotFound
// when nobody holds it.
func (r *EmployeeRepo) HolderOf(ctx context.Context, deskID uint64) (*model.Employee, error) {
	e, err := scanEmployee(r.db.QueryRowContext(ctx,
		`SELECT `+prefixColumns("e.", employeeColumns)+`
		 FROM employee_assignments ea
		 JOIN employees e ON e.id = ea.employee_id
		 WHERE ea.desk_id = ?`, deskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return e, nil
}

// prefixColumns qualifies each column in a comma-separated list with a
// table alias for use in joins.
func prefixColumns(prefix, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
