package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/desk-allocation/internal/allocation"
	"github.com/iliyamo/desk-allocation/internal/model"
	"github.com/iliyamo/desk-allocation/internal/queue"
	"github.com/iliyamo/desk-allocation/internal/repository"
	queue_publisher "github.com/iliyamo/desk-allocation/internal/service"
)

// DeskReader is the read-only desk access these endpoints need beyond
// the engine.  repository.DeskRepo satisfies it.
type DeskReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Desk, error)
}

// EmployeeReader is the directory access for assignment lookups and
// event enrichment.  repository.EmployeeRepo satisfies it.
type EmployeeReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Employee, error)
	ListAssignments(ctx context.Context, employeeID uint64) ([]model.Desk, error)
	HolderOf(ctx context.Context, deskID uint64) (*model.Employee, error)
}

// AssignmentHandler exposes the allocation engine over HTTP.  The
// engine owns all correctness; this layer parses requests, maps the
// failure taxonomy to status codes and publishes audit events after
// successful commits.
type AssignmentHandler struct {
	Engine    *allocation.Engine
	Desks     DeskReader
	Employees EmployeeReader

	publishAssigned func(context.Context, queue.DeskAssignedEvent) error
	publishReleased func(context.Context, queue.DeskReleasedEvent) error
}

func NewAssignmentHandler(engine *allocation.Engine, desks DeskReader, employees EmployeeReader) *AssignmentHandler {
	if engine == nil || desks == nil || employees == nil {
		panic("nil dependency passed to NewAssignmentHandler")
	}
	return &AssignmentHandler{
		Engine:          engine,
		Desks:           desks,
		Employees:       employees,
		publishAssigned: queue_publisher.PublishDeskAssigned,
		publishReleased: queue_publisher.PublishDeskReleased,
	}
}

type findOptimalReq struct {
	EmployeeID uint64 `json:"employee_id"`
	Date       string `json:"date"` // RFC3339; empty means now
}

type assignReq struct {
	EmployeeID uint64 `json:"employee_id"`
	DeskID     uint64 `json:"desk_id"`
	Date       string `json:"date"`
}

type assignByPrefReq struct {
	EmployeeID  uint64          `json:"employee_id"`
	Preferences model.DeskQuery `json:"preferences"`
	Date        string          `json:"date"`
}

// parseDate interprets an optional RFC3339 target date, defaulting to
// the current time.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Now().UTC(), true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// FindOptimal handles POST /v1/assignments/optimal.  Pure planning
// query: returns the best eligible desk without committing anything.
func (h *AssignmentHandler) FindOptimal(c echo.Context) error {
	var req findOptimalReq
	if err := c.Bind(&req); err != nil || req.EmployeeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "employee_id required"})
	}
	date, ok := parseDate(req.Date)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want RFC3339"})
	}
	desk, err := h.Engine.FindOptimal(c.Request().Context(), req.EmployeeID, date)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, desk)
}

// Assign handles POST /v1/assignments: direct assignment of a named
// desk.  Constraints are re-validated and committed atomically by the
// engine; a 409 means another caller claimed the desk first.
func (h *AssignmentHandler) Assign(c echo.Context) error {
	var req assignReq
	if err := c.Bind(&req); err != nil || req.EmployeeID == 0 || req.DeskID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "employee_id and desk_id required"})
	}
	date, ok := parseDate(req.Date)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want RFC3339"})
	}
	desk, err := h.Engine.Assign(c.Request().Context(), req.EmployeeID, req.DeskID, date)
	if err != nil {
		return engineError(c, err)
	}
	h.emitAssigned(c, desk, req.EmployeeID)
	return c.JSON(http.StatusCreated, desk)
}

// AssignByPreferences handles POST /v1/assignments/by-preferences.  The
// body carries the structured predicate produced by the query front
// end; the engine picks and commits the top-ranked match.
func (h *AssignmentHandler) AssignByPreferences(c echo.Context) error {
	var req assignByPrefReq
	if err := c.Bind(&req); err != nil || req.EmployeeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "employee_id required"})
	}
	date, ok := parseDate(req.Date)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want RFC3339"})
	}
	desk, err := h.Engine.AssignByPreference(c.Request().Context(), req.EmployeeID, req.Preferences, date)
	if err != nil {
		return engineError(c, err)
	}
	h.emitAssigned(c, desk, req.EmployeeID)
	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "desk assigned",
		"desk_id":   desk.ID,
		"desk_code": desk.DeskCode,
		"floor":     desk.Floor,
		"features":  desk.Features,
	})
}

// Release handles DELETE /v1/assignments/:deskID.  Releasing an
// unassigned desk succeeds (idempotent); only an unknown desk is 404.
func (h *AssignmentHandler) Release(c echo.Context) error {
	deskID, ok := pathID(c, "deskID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid desk id"})
	}
	ctx := c.Request().Context()
	desk, err := h.Desks.GetByID(ctx, deskID)
	if err != nil {
		if errors.Is(err, repository.ErrDeskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "desk not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.Engine.Release(ctx, deskID); err != nil {
		return engineError(c, err)
	}
	h.emitReleased(c, desk)
	return c.JSON(http.StatusOK, echo.Map{"message": "desk released"})
}

// EmployeeAssignments handles GET /v1/employees/:id/assignments and
// returns the desks currently held by the employee.
func (h *AssignmentHandler) EmployeeAssignments(c echo.Context) error {
	employeeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Employees.GetByID(ctx, employeeID); err != nil {
		if errors.Is(err, repository.ErrEmployeeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	desks, err := h.Employees.ListAssignments(ctx, employeeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if desks == nil {
		desks = []model.Desk{}
	}
	return c.JSON(http.StatusOK, desks)
}

// DeskAssignment handles GET /v1/desks/:id/assignment and reports who
// holds a desk, or a null holder for unassigned states.
func (h *AssignmentHandler) DeskAssignment(c echo.Context) error {
	deskID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid desk id"})
	}
	ctx := c.Request().Context()
	desk, err := h.Desks.GetByID(ctx, deskID)
	if err != nil {
		if errors.Is(err, repository.ErrDeskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "desk not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if desk.Status != model.StatusAssigned {
		return c.JSON(http.StatusOK, echo.Map{"status": desk.Status, "assigned_to": nil})
	}
	emp, err := h.Employees.HolderOf(ctx, deskID)
	if err != nil {
		if errors.Is(err, repository.ErrEmployeeNotFound) {
			// Assigned but not yet linked: the transient window of the
			// two-step commit, resolved by the directory repair pass.
			return c.JSON(http.StatusOK, echo.Map{"status": desk.Status, "assigned_to": nil})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": desk.Status,
		"assigned_to": echo.Map{
			"employee_id":   emp.ID,
			"employee_code": emp.EmployeeCode,
			"name":          emp.Name,
			"email":         emp.Email,
		},
	})
}

// emitAssigned emits the audit event for a committed assignment.  The
// event is always published with the ids the handler already holds;
// name and score are enrichment, so a failed directory read must not
// drop the event.  Publish failures are logged by the publisher and
// never fail the request.
func (h *AssignmentHandler) emitAssigned(c echo.Context, desk *model.Desk, employeeID uint64) {
	ctx := c.Request().Context()
	ev := queue.DeskAssignedEvent{
		EventID:    uuid.NewString(),
		DeskID:     desk.ID,
		DeskCode:   desk.DeskCode,
		Floor:      desk.Floor,
		EmployeeID: employeeID,
		AssignedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if emp, err := h.Employees.GetByID(ctx, employeeID); err == nil {
		ev.EmployeeName = emp.Name
		ev.Score = allocation.Score(desk, emp)
	}
	_ = h.publishAssigned(ctx, ev)
}

func (h *AssignmentHandler) emitReleased(c echo.Context, desk *model.Desk) {
	_ = h.publishReleased(c.Request().Context(), queue.DeskReleasedEvent{
		EventID:    uuid.NewString(),
		DeskID:     desk.ID,
		DeskCode:   desk.DeskCode,
		Floor:      desk.Floor,
		ReleasedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
