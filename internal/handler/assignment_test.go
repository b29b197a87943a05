package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/desk-allocation/internal/allocation"
	"github.com/iliyamo/desk-allocation/internal/model"
	"github.com/iliyamo/desk-allocation/internal/policy"
	"github.com/iliyamo/desk-allocation/internal/queue"
	"github.com/iliyamo/desk-allocation/internal/repository"
)

// allocStoreStub backs the engine with a single assignable desk and
// keeps every policy check green.
type allocStoreStub struct {
	mu   sync.Mutex
	desk model.Desk
}

func (s *allocStoreStub) GetByID(_ context.Context, id uint64) (*model.Desk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.desk.ID != id {
		return nil, repository.ErrDeskNotFound
	}
	cp := s.desk
	return &cp, nil
}

func (s *allocStoreStub) ListAvailable(context.Context) ([]model.Desk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.desk.Status != model.StatusAvailable {
		return nil, nil
	}
	return []model.Desk{s.desk}, nil
}

func (s *allocStoreStub) QueryAvailable(ctx context.Context, _ model.DeskQuery) ([]model.Desk, error) {
	return s.ListAvailable(ctx)
}

func (s *allocStoreStub) CompareAndSetAssigned(_ context.Context, deskID, employeeID uint64, ts time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.desk.ID != deskID || s.desk.Status != model.StatusAvailable {
		return false, nil
	}
	s.desk.Status = model.StatusAssigned
	e := employeeID
	s.desk.AssignedTo = &e
	t := ts
	s.desk.LastUsed = &t
	return true, nil
}

func (s *allocStoreStub) CompareAndSetAvailable(_ context.Context, deskID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.desk.ID != deskID || s.desk.Status != model.StatusAssigned {
		return false, nil
	}
	s.desk.Status = model.StatusAvailable
	s.desk.AssignedTo = nil
	return true, nil
}

func (s *allocStoreStub) CountAssignedNear(context.Context, int, int, int) (int, error) {
	return 0, nil
}

func (s *allocStoreStub) CountByFloor(context.Context, string) (int, int, error) {
	return 10, 0, nil
}

func (s *allocStoreStub) RecentUsage(context.Context, uint64, int) ([]time.Time, error) {
	return nil, nil
}

// dirStub is the engine-side directory; it always resolves.
type dirStub struct {
	emp model.Employee
}

func (d *dirStub) GetByID(_ context.Context, id uint64) (*model.Employee, error) {
	if d.emp.ID != id {
		return nil, repository.ErrEmployeeNotFound
	}
	cp := d.emp
	return &cp, nil
}

func (d *dirStub) AppendAssignment(context.Context, uint64, uint64) error { return nil }
func (d *dirStub) RemoveAssignment(context.Context, uint64) error         { return nil }

// readerStub is the handler-side directory reader; failErr simulates an
// outage after the commit.
type readerStub struct {
	emp     model.Employee
	failErr error
}

func (r *readerStub) GetByID(_ context.Context, id uint64) (*model.Employee, error) {
	if r.failErr != nil {
		return nil, r.failErr
	}
	if r.emp.ID != id {
		return nil, repository.ErrEmployeeNotFound
	}
	cp := r.emp
	return &cp, nil
}

func (r *readerStub) ListAssignments(context.Context, uint64) ([]model.Desk, error) {
	return nil, nil
}

func (r *readerStub) HolderOf(context.Context, uint64) (*model.Employee, error) {
	return nil, repository.ErrEmployeeNotFound
}

func assignableDesk() model.Desk {
	return model.Desk{
		ID:       1,
		DeskCode: "D-2-001",
		Floor:    "2",
		Status:   model.StatusAvailable,
		X:        4,
		Y:        4,
		Features: model.DeskFeatures{DeskType: model.DeskTypeSitting, NoiseLevel: model.NoiseModerate},
	}
}

func requester() model.Employee {
	return model.Employee{
		ID:           5,
		EmployeeCode: "E-005",
		Name:         "Noa",
		Email:        "noa@example.com",
		Preferences: model.Preferences{
			DeskType:        model.DeskTypeSitting,
			NoisePreference: model.NoiseModerate,
		},
	}
}

func newAssignmentFixture(reader *readerStub) (*AssignmentHandler, *allocStoreStub, *[]queue.DeskAssignedEvent) {
	store := &allocStoreStub{desk: assignableDesk()}
	eng := allocation.NewEngine(store, &dirStub{emp: requester()}, policy.NewEvaluator(store, nil), nil)
	h := NewAssignmentHandler(eng, store, reader)

	events := &[]queue.DeskAssignedEvent{}
	h.publishAssigned = func(_ context.Context, ev queue.DeskAssignedEvent) error {
		*events = append(*events, ev)
		return nil
	}
	return h, store, events
}

func postAssign(t *testing.T, h *AssignmentHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/assignments", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Assign(e.NewContext(req, rec)))
	return rec
}

func TestAssignPublishesEventWhenDirectoryReadFails(t *testing.T) {
	// The commit succeeded, so the audit trail must record it even when
	// the post-commit enrichment read fails; only name and score are
	// left empty.
	reader := &readerStub{failErr: errors.New("directory unavailable")}
	h, store, events := newAssignmentFixture(reader)

	rec := postAssign(t, h, `{"employee_id":5,"desk_id":1}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.StatusAssigned, store.desk.Status)

	require.Len(t, *events, 1)
	ev := (*events)[0]
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, uint64(1), ev.DeskID)
	assert.Equal(t, "D-2-001", ev.DeskCode)
	assert.Equal(t, uint64(5), ev.EmployeeID)
	assert.Empty(t, ev.EmployeeName)
	assert.Zero(t, ev.Score)
}

func TestAssignEnrichesEventFromDirectory(t *testing.T) {
	reader := &readerStub{emp: requester()}
	h, _, events := newAssignmentFixture(reader)

	rec := postAssign(t, h, `{"employee_id":5,"desk_id":1}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, *events, 1)
	ev := (*events)[0]
	assert.Equal(t, "Noa", ev.EmployeeName)

	desk := assignableDesk()
	emp := requester()
	assert.Equal(t, allocation.Score(&desk, &emp), ev.Score)
}
