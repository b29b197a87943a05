package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/desk-allocation/internal/model"
	"github.com/iliyamo/desk-allocation/internal/repository"
)

// EmployeeHandler serves the employee directory endpoints.  Creating
// employees is admin-only; employees update their own preferences.
type EmployeeHandler struct {
	Employees *repository.EmployeeRepo
}

func NewEmployeeHandler(employees *repository.EmployeeRepo) *EmployeeHandler {
	return &EmployeeHandler{Employees: employees}
}

type employeeReq struct {
	EmployeeCode string            `json:"employee_code"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Department   string            `json:"department"`
	IsExecutive  bool              `json:"is_executive"`
	Preferences  model.Preferences `json:"preferences"`
	Schedule     model.Schedule    `json:"schedule"`
}

type preferencesReq struct {
	Preferences model.Preferences `json:"preferences"`
	Schedule    model.Schedule    `json:"schedule"`
}

// Create handles POST /v1/employees.
func (h *EmployeeHandler) Create(c echo.Context) error {
	var req employeeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.EmployeeCode = strings.TrimSpace(req.EmployeeCode)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.EmployeeCode == "" || req.Name == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "employee_code, name and email required"})
	}
	emp := &model.Employee{
		EmployeeCode: req.EmployeeCode,
		Name:         req.Name,
		Email:        req.Email,
		Department:   req.Department,
		IsExecutive:  req.IsExecutive,
		Preferences:  req.Preferences,
		Schedule:     req.Schedule,
	}
	if err := h.Employees.Create(c.Request().Context(), emp); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "employee_code or email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, emp)
}

// Get handles GET /v1/employees/:id.
func (h *EmployeeHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee id"})
	}
	emp, err := h.Employees.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrEmployeeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, emp)
}

// List handles GET /v1/employees.
func (h *EmployeeHandler) List(c echo.Context) error {
	employees, err := h.Employees.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if employees == nil {
		employees = []model.Employee{}
	}
	return c.JSON(http.StatusOK, employees)
}

// UpdatePreferences handles PUT /v1/employees/:id/preferences.  The
// new preference set takes effect on the next assignment; existing
// assignments are untouched.
func (h *EmployeeHandler) UpdatePreferences(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee id"})
	}
	var req preferencesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	err := h.Employees.UpdatePreferences(c.Request().Context(), id, req.Preferences, req.Schedule)
	if err != nil {
		if errors.Is(err, repository.ErrEmployeeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "preferences updated"})
}
