package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/desk-allocation/internal/model"
	"github.com/iliyamo/desk-allocation/internal/repository"
)

// DeskStore is the slice of the desk repository the inventory endpoints
// use.  repository.DeskRepo satisfies it.
type DeskStore interface {
	Create(ctx context.Context, d *model.Desk) error
	Update(ctx context.Context, d *model.Desk) error
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (*model.Desk, error)
	ListAll(ctx context.Context) ([]model.Desk, error)
	ListByFloor(ctx context.Context, floor string) ([]model.Desk, error)
	SetStatus(ctx context.Context, deskID uint64, from, to model.DeskStatus) (bool, error)
}

// DeskHandler serves the desk inventory endpoints.  Reads are open to
// any authenticated account; mutations are admin-only (enforced in the
// router).  Status changes go through the lifecycle transition table,
// never through free-form updates.
type DeskHandler struct {
	Desks DeskStore
}

func NewDeskHandler(desks DeskStore) *DeskHandler {
	return &DeskHandler{Desks: desks}
}

type deskReq struct {
	DeskCode string             `json:"desk_code"`
	Floor    string             `json:"floor"`
	X        int                `json:"x"`
	Y        int                `json:"y"`
	Features model.DeskFeatures `json:"features"`
}

type deskStatusReq struct {
	Status string `json:"status"`
}

// Create handles POST /v1/desks.  New desks always start available.
func (h *DeskHandler) Create(c echo.Context) error {
	var req deskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.DeskCode = strings.TrimSpace(req.DeskCode)
	req.Floor = strings.TrimSpace(req.Floor)
	if req.DeskCode == "" || req.Floor == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "desk_code and floor required"})
	}
	desk := &model.Desk{
		DeskCode: req.DeskCode,
		Floor:    req.Floor,
		X:        req.X,
		Y:        req.Y,
		Features: req.Features,
	}
	if err := h.Desks.Create(c.Request().Context(), desk); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "desk_code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, desk)
}

// Get handles GET /v1/desks/:id.
func (h *DeskHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid desk id"})
	}
	desk, err := h.Desks.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrDeskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "desk not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, desk)
}

// List handles GET /v1/desks with an optional ?floor= filter.
func (h *DeskHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		desks []model.Desk
		err   error
	)
	if floor := strings.TrimSpace(c.QueryParam("floor")); floor != "" {
		desks, err = h.Desks.ListByFloor(ctx, floor)
	} else {
		desks, err = h.Desks.ListAll(ctx)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if desks == nil {
		desks = []model.Desk{}
	}
	return c.JSON(http.StatusOK, desks)
}

// Update handles PUT /v1/desks/:id: location and features only.
// Status and assignment never change through this path.
func (h *DeskHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid desk id"})
	}
	var req deskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Floor = strings.TrimSpace(req.Floor)
	if req.Floor == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "floor required"})
	}
	desk := &model.Desk{ID: id, Floor: req.Floor, X: req.X, Y: req.Y, Features: req.Features}
	if err := h.Desks.Update(c.Request().Context(), desk); err != nil {
		if errors.Is(err, repository.ErrDeskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "desk not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "desk updated"})
}

// Delete handles DELETE /v1/desks/:id.  Assigned desks must be
// released first.
func (h *DeskHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid desk id"})
	}
	if err := h.Desks.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrDeskNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "desk not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "desk is assigned, release it first"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// SetStatus handles PATCH /v1/desks/:id/status.  Admin transitions are
// maintenance, quarantine and available only; the assigned state is
// entered exclusively through the assignment endpoints' conditional
// commit, so it can never appear here with a NULL holder.  Moving an
// assigned desk anywhere requires releasing it first.  The transition
// is a conditional update, so a concurrent assignment wins cleanly.
func (h *DeskHandler) SetStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid desk id"})
	}
	var req deskStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	to := model.DeskStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !model.ValidStatus(to) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	if to == model.StatusAssigned {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "assigned is set through the assignment endpoints",
		})
	}

	ctx := c.Request().Context()
	desk, err := h.Desks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDeskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "desk not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if desk.Status == model.StatusAssigned {
		// Leaving the assigned state also has to unlink the holder, so it
		// only happens through the release endpoint.
		return c.JSON(http.StatusConflict, echo.Map{"error": "desk is assigned, release it first"})
	}
	if !model.CanTransition(desk.Status, to) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "invalid transition " + string(desk.Status) + " -> " + string(to),
		})
	}
	swapped, err := h.Desks.SetStatus(ctx, id, desk.Status, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !swapped {
		return c.JSON(http.StatusConflict, echo.Map{"error": "desk status changed concurrently"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "status updated", "status": to})
}
