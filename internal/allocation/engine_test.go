package allocation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/desk-allocation/internal/model"
	"github.com/iliyamo/desk-allocation/internal/policy"
	"github.com/iliyamo/desk-allocation/internal/repository"
)

// fakeStore is an in-memory DeskStore and policy.Store.  The mutex makes
// CompareAndSetAssigned behave like the conditional UPDATE: of N racing
// callers exactly one observes the available->assigned swap.
type fakeStore struct {
	mu       sync.Mutex
	desks    map[uint64]*model.Desk
	failOnce map[uint64]bool // next CAS on this desk loses, simulating a lost race
}

func newFakeStore(desks ...model.Desk) *fakeStore {
	s := &fakeStore{desks: map[uint64]*model.Desk{}, failOnce: map[uint64]bool{}}
	for i := range desks {
		d := desks[i]
		s.desks[d.ID] = &d
	}
	return s
}

func (s *fakeStore) GetByID(_ context.Context, id uint64) (*model.Desk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.desks[id]
	if !ok {
		return nil, repository.ErrDeskNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *fakeStore) ListAvailable(context.Context) ([]model.Desk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Desk
	// Map iteration order is deliberately random; the engine must not
	// depend on the order candidates arrive in.
	for _, d := range s.desks {
		if d.Status == model.StatusAvailable {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeStore) QueryAvailable(ctx context.Context, q model.DeskQuery) ([]model.Desk, error) {
	all, _ := s.ListAvailable(ctx)
	var out []model.Desk
	for _, d := range all {
		if q.Floor != nil && d.Floor != *q.Floor {
			continue
		}
		if q.PreferredFloor != nil && d.Floor != *q.PreferredFloor {
			continue
		}
		if q.DeskType != nil && d.Features.DeskType != *q.DeskType {
			continue
		}
		if q.RequiresDualMonitor != nil && *q.RequiresDualMonitor && !d.Features.HasDualMonitor {
			continue
		}
		if q.RequiresAccessibility != nil && *q.RequiresAccessibility && !d.Features.IsAccessible {
			continue
		}
		if q.NoiseLevel != nil && d.Features.NoiseLevel != *q.NoiseLevel {
			continue
		}
		if q.TeamZone != nil && (d.Features.TeamZone == nil || *d.Features.TeamZone != *q.TeamZone) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *fakeStore) CompareAndSetAssigned(_ context.Context, deskID, employeeID uint64, ts time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOnce[deskID] {
		delete(s.failOnce, deskID)
		return false, nil
	}
	d, ok := s.desks[deskID]
	if !ok || d.Status != model.StatusAvailable {
		return false, nil
	}
	d.Status = model.StatusAssigned
	e := employeeID
	d.AssignedTo = &e
	t := ts
	d.LastUsed = &t
	return true, nil
}

func (s *fakeStore) CompareAndSetAvailable(_ context.Context, deskID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.desks[deskID]
	if !ok || d.Status != model.StatusAssigned {
		return false, nil
	}
	d.Status = model.StatusAvailable
	d.AssignedTo = nil
	return true, nil
}

func (s *fakeStore) CountAssignedNear(_ context.Context, x, y, radius int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.desks {
		if d.Status != model.StatusAssigned {
			continue
		}
		if d.X >= x-radius && d.X <= x+radius && d.Y >= y-radius && d.Y <= y+radius {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CountByFloor(_ context.Context, floor string) (total, assigned int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.desks {
		if d.Floor != floor {
			continue
		}
		total++
		if d.Status == model.StatusAssigned {
			assigned++
		}
	}
	return total, assigned, nil
}

func (s *fakeStore) RecentUsage(_ context.Context, employeeID uint64, limit int) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Time
	for _, d := range s.desks {
		if d.Status == model.StatusAssigned && d.AssignedTo != nil &&
			*d.AssignedTo == employeeID && d.LastUsed != nil {
			out = append(out, *d.LastUsed)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].After(out[i]) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeDirectory is an in-memory Directory keyed on desk id for links.
type fakeDirectory struct {
	mu        sync.Mutex
	employees map[uint64]*model.Employee
	links     map[uint64]uint64 // desk id -> employee id
	linkFails int               // AppendAssignment fails this many times
}

func newFakeDirectory(emps ...model.Employee) *fakeDirectory {
	d := &fakeDirectory{employees: map[uint64]*model.Employee{}, links: map[uint64]uint64{}}
	for i := range emps {
		e := emps[i]
		d.employees[e.ID] = &e
	}
	return d
}

func (f *fakeDirectory) GetByID(_ context.Context, id uint64) (*model.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.employees[id]
	if !ok {
		return nil, repository.ErrEmployeeNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeDirectory) AppendAssignment(_ context.Context, employeeID, deskID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linkFails > 0 {
		f.linkFails--
		return errLinkWrite
	}
	f.links[deskID] = employeeID
	return nil
}

func (f *fakeDirectory) RemoveAssignment(_ context.Context, deskID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links, deskID)
	return nil
}

var errLinkWrite = errors.New("link write failed")

func fixedNow() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

func testDesk(id uint64, floor string, x, y int) model.Desk {
	return model.Desk{
		ID:       id,
		DeskCode: "D-" + floor + "-" + string(rune('0'+id)),
		Floor:    floor,
		Status:   model.StatusAvailable,
		X:        x,
		Y:        y,
		Features: model.DeskFeatures{DeskType: model.DeskTypeSitting, NoiseLevel: model.NoiseModerate},
	}
}

// paddingDesk is never assignable (emergency) but still counts toward
// the floor total, keeping the density check off the backs of tests
// that only care about one real desk.
func paddingDesk(id uint64, floor string) model.Desk {
	d := testDesk(id, floor, 500, 500)
	d.Features.IsEmergencyDesk = true
	return d
}

func testEmployee(id uint64) model.Employee {
	return model.Employee{
		ID:           id,
		EmployeeCode: "E-001",
		Name:         "Dana",
		Email:        "dana@example.com",
		Preferences: model.Preferences{
			DeskType:           model.DeskTypeSitting,
			LocationPreference: model.LocationAny,
			NoisePreference:    model.NoiseModerate,
		},
	}
}

func newTestEngine(store *fakeStore, dir *fakeDirectory) *Engine {
	eval := policy.NewEvaluator(store, fixedNow)
	return NewEngine(store, dir, eval, fixedNow)
}

func TestFindOptimalPicksHighestScore(t *testing.T) {
	// Desk 2 matches the sitting preference, desk 1 does not.  Desks are
	// spread far apart so distancing never interferes.
	d1 := testDesk(1, "3", 0, 0)
	d1.Features.DeskType = model.DeskTypeStanding
	d2 := testDesk(2, "3", 40, 0)
	d3 := testDesk(3, "3", 80, 0)
	d3.Features.DeskType = model.DeskTypeStanding
	store := newFakeStore(d1, d2, d3)
	dir := newFakeDirectory(testEmployee(7))
	eng := newTestEngine(store, dir)

	got, err := eng.FindOptimal(context.Background(), 7, fixedNow())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.ID)

	// Read-only: nothing was committed.
	after, _ := store.GetByID(context.Background(), 2)
	assert.Equal(t, model.StatusAvailable, after.Status)
}

func TestFindOptimalTieBreaksOnLowestID(t *testing.T) {
	// Identical desks -> identical scores -> lowest id wins regardless of
	// the order the store returns them in.
	store := newFakeStore(
		testDesk(9, "1", 0, 0),
		testDesk(4, "1", 40, 0),
		testDesk(12, "1", 80, 0),
	)
	dir := newFakeDirectory(testEmployee(1))
	eng := newTestEngine(store, dir)

	for i := 0; i < 10; i++ {
		got, err := eng.FindOptimal(context.Background(), 1, fixedNow())
		require.NoError(t, err)
		assert.Equal(t, uint64(4), got.ID)
	}
}

func TestFindOptimalNoSuitableDesk(t *testing.T) {
	d := testDesk(1, "2", 0, 0)
	d.Features.IsEmergencyDesk = true
	store := newFakeStore(d)
	dir := newFakeDirectory(testEmployee(1))
	eng := newTestEngine(store, dir)

	_, err := eng.FindOptimal(context.Background(), 1, fixedNow())
	assert.Equal(t, KindNoSuitableDesk, KindOf(err))
}

func TestFindOptimalUnknownEmployee(t *testing.T) {
	store := newFakeStore(testDesk(1, "2", 0, 0))
	eng := newTestEngine(store, newFakeDirectory())

	_, err := eng.FindOptimal(context.Background(), 42, fixedNow())
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestAssignCommitsBothSides(t *testing.T) {
	store := newFakeStore(testDesk(1, "2", 0, 0), testDesk(2, "2", 40, 0))
	dir := newFakeDirectory(testEmployee(5))
	eng := newTestEngine(store, dir)

	got, err := eng.Assign(context.Background(), 5, 1, fixedNow())
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, got.Status)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, uint64(5), *got.AssignedTo)
	require.NotNil(t, got.LastUsed)
	assert.Equal(t, fixedNow(), *got.LastUsed)

	// Both sides of the assignment agree.
	stored, _ := store.GetByID(context.Background(), 1)
	assert.Equal(t, model.StatusAssigned, stored.Status)
	assert.Equal(t, uint64(5), dir.links[1])
}

func TestAssignUnknownDesk(t *testing.T) {
	store := newFakeStore()
	dir := newFakeDirectory(testEmployee(5))
	eng := newTestEngine(store, dir)

	_, err := eng.Assign(context.Background(), 5, 99, fixedNow())
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestAssignAlreadyAssignedDesk(t *testing.T) {
	d := testDesk(1, "2", 0, 0)
	d.Status = model.StatusAssigned
	store := newFakeStore(d)
	dir := newFakeDirectory(testEmployee(5))
	eng := newTestEngine(store, dir)

	_, err := eng.Assign(context.Background(), 5, 1, fixedNow())
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestAssignDeskUnderMaintenance(t *testing.T) {
	d := testDesk(1, "2", 0, 0)
	d.Status = model.StatusMaintenance
	store := newFakeStore(d)
	dir := newFakeDirectory(testEmployee(5))
	eng := newTestEngine(store, dir)

	_, err := eng.Assign(context.Background(), 5, 1, fixedNow())
	assert.Equal(t, KindIneligible, KindOf(err))
}

func TestAssignPolicyViolationIsIneligible(t *testing.T) {
	d := testDesk(1, "2", 0, 0)
	d.Features.IsExecutive = true
	store := newFakeStore(d)
	dir := newFakeDirectory(testEmployee(5))
	eng := newTestEngine(store, dir)

	_, err := eng.Assign(context.Background(), 5, 1, fixedNow())
	require.Equal(t, KindIneligible, KindOf(err))
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Reason, "executive")
}

func TestAssignRaceHasExactlyOneWinner(t *testing.T) {
	store := newFakeStore(testDesk(1, "2", 0, 0), paddingDesk(90, "2"))
	emps := make([]model.Employee, 0, 16)
	for i := uint64(1); i <= 16; i++ {
		e := testEmployee(i)
		e.ID = i
		emps = append(emps, e)
	}
	dir := newFakeDirectory(emps...)
	eng := newTestEngine(store, dir)

	var wg sync.WaitGroup
	results := make([]error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = eng.Assign(context.Background(), uint64(i+1), 1, fixedNow())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		// Losers see Conflict (lost the swap or read assigned state) or
		// Ineligible (evaluated after the winner committed nearby).
		k := KindOf(err)
		assert.True(t, k == KindConflict || k == KindIneligible, "unexpected error: %v", err)
	}
	assert.Equal(t, 1, wins)

	stored, _ := store.GetByID(context.Background(), 1)
	assert.Equal(t, model.StatusAssigned, stored.Status)
}

func TestAssignByPreferenceFiltersAndCommits(t *testing.T) {
	d1 := testDesk(1, "2", 0, 0)
	d1.Features.NoiseLevel = model.NoiseHigh
	d2 := testDesk(2, "3", 40, 0)
	d2.Features.NoiseLevel = model.NoiseQuiet
	store := newFakeStore(d1, d2, paddingDesk(90, "3"))
	dir := newFakeDirectory(testEmployee(5))
	eng := newTestEngine(store, dir)

	quiet := model.NoiseQuiet
	got, err := eng.AssignByPreference(context.Background(), 5,
		model.DeskQuery{NoiseLevel: &quiet}, fixedNow())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.ID)
	assert.Equal(t, model.StatusAssigned, got.Status)
}

func TestAssignByPreferenceInvalidQuery(t *testing.T) {
	store := newFakeStore(testDesk(1, "2", 0, 0))
	dir := newFakeDirectory(testEmployee(5))
	eng := newTestEngine(store, dir)

	bogus := "loud"
	_, err := eng.AssignByPreference(context.Background(), 5,
		model.DeskQuery{NoiseLevel: &bogus}, fixedNow())
	assert.Equal(t, KindInvalidQuery, KindOf(err))
}

func TestAssignByPreferenceFallsThroughOnConflict(t *testing.T) {
	// Desk 1 would rank first (lowest id among equals) but its first CAS
	// is rigged to lose; the engine must fall through to desk 2.
	store := newFakeStore(testDesk(1, "2", 0, 0), testDesk(2, "2", 40, 0))
	store.failOnce[1] = true
	dir := newFakeDirectory(testEmployee(5))
	eng := newTestEngine(store, dir)

	got, err := eng.AssignByPreference(context.Background(), 5, model.DeskQuery{}, fixedNow())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.ID)
}

func TestAssignByPreferenceAllCandidatesClaimed(t *testing.T) {
	store := newFakeStore(testDesk(1, "2", 0, 0), paddingDesk(90, "2"))
	store.failOnce[1] = true
	dir := newFakeDirectory(testEmployee(5))
	eng := newTestEngine(store, dir)

	_, err := eng.AssignByPreference(context.Background(), 5, model.DeskQuery{}, fixedNow())
	assert.Equal(t, KindNoSuitableDesk, KindOf(err))
}

func TestAssignByPreferenceNoMatch(t *testing.T) {
	store := newFakeStore(testDesk(1, "2", 0, 0))
	dir := newFakeDirectory(testEmployee(5))
	eng := newTestEngine(store, dir)

	floor := "9"
	_, err := eng.AssignByPreference(context.Background(), 5,
		model.DeskQuery{Floor: &floor}, fixedNow())
	assert.Equal(t, KindNoSuitableDesk, KindOf(err))
}

func TestAssignSurvivesLinkFailure(t *testing.T) {
	// The employee-side link failing never rolls back the committed
	// assignment; the engine retries and then leaves it to the repair
	// pass.
	store := newFakeStore(testDesk(1, "2", 0, 0), paddingDesk(90, "2"))
	dir := newFakeDirectory(testEmployee(5))
	dir.linkFails = 10 // more than the retry budget
	eng := newTestEngine(store, dir)

	got, err := eng.Assign(context.Background(), 5, 1, fixedNow())
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, got.Status)

	stored, _ := store.GetByID(context.Background(), 1)
	assert.Equal(t, model.StatusAssigned, stored.Status)
	_, linked := dir.links[1]
	assert.False(t, linked)
}

func TestAssignLinkRetrySucceeds(t *testing.T) {
	store := newFakeStore(testDesk(1, "2", 0, 0), paddingDesk(90, "2"))
	dir := newFakeDirectory(testEmployee(5))
	dir.linkFails = 2 // inside the retry budget
	eng := newTestEngine(store, dir)

	_, err := eng.Assign(context.Background(), 5, 1, fixedNow())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), dir.links[1])
}

func TestReleaseRoundTrip(t *testing.T) {
	store := newFakeStore(testDesk(1, "2", 0, 0), paddingDesk(90, "2"))
	dir := newFakeDirectory(testEmployee(5))
	eng := newTestEngine(store, dir)

	_, err := eng.Assign(context.Background(), 5, 1, fixedNow())
	require.NoError(t, err)

	require.NoError(t, eng.Release(context.Background(), 1))

	stored, _ := store.GetByID(context.Background(), 1)
	assert.Equal(t, model.StatusAvailable, stored.Status)
	assert.Nil(t, stored.AssignedTo)
	// last_used survives release so the sanitization window keeps counting.
	require.NotNil(t, stored.LastUsed)
	_, linked := dir.links[1]
	assert.False(t, linked)
}

func TestReleaseIsIdempotent(t *testing.T) {
	store := newFakeStore(testDesk(1, "2", 0, 0))
	dir := newFakeDirectory(testEmployee(5))
	eng := newTestEngine(store, dir)

	// Releasing an available desk is a no-op success, repeatedly.
	assert.NoError(t, eng.Release(context.Background(), 1))
	assert.NoError(t, eng.Release(context.Background(), 1))
}

func TestReleaseUnknownDesk(t *testing.T) {
	eng := newTestEngine(newFakeStore(), newFakeDirectory())
	err := eng.Release(context.Background(), 404)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestReleasedDeskBlockedBySanitization(t *testing.T) {
	// Assign then release, then try to reassign within the sanitization
	// window: the desk must be excluded even though it is available.
	store := newFakeStore(testDesk(1, "2", 0, 0), paddingDesk(90, "2"))
	dir := newFakeDirectory(testEmployee(5), testEmployee(6))
	eng := newTestEngine(store, dir)

	_, err := eng.Assign(context.Background(), 5, 1, fixedNow())
	require.NoError(t, err)
	require.NoError(t, eng.Release(context.Background(), 1))

	_, err = eng.Assign(context.Background(), 6, 1, fixedNow().Add(time.Hour))
	require.Equal(t, KindIneligible, KindOf(err))
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Reason, "sanitization")
}
