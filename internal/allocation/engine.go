// Package allocation implements the desk allocation engine: candidate
// discovery, hard-constraint filtering, preference ranking and the
// race-safe commit protocol that turns a selection into an assignment.
package allocation

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/iliyamo/desk-allocation/internal/model"
	"github.com/iliyamo/desk-allocation/internal/policy"
)

// DeskStore is the desk-side collaborator contract.  GetByID reports
// absence with repository.ErrDeskNotFound.  CompareAndSetAssigned and
// CompareAndSetAvailable are the conditional transitions of the desk
// lifecycle; they return false when the guard status no longer holds,
// which is how a lost race surfaces.
type DeskStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Desk, error)
	ListAvailable(ctx context.Context) ([]model.Desk, error)
	QueryAvailable(ctx context.Context, q model.DeskQuery) ([]model.Desk, error)
	CompareAndSetAssigned(ctx context.Context, deskID, employeeID uint64, ts time.Time) (bool, error)
	CompareAndSetAvailable(ctx context.Context, deskID uint64) (bool, error)
}

// Directory is the employee-side collaborator contract.  GetByID
// reports absence with repository.ErrEmployeeNotFound.  AppendAssignment
// and RemoveAssignment maintain the employee half of the bidirectional
// assignment invariant and must be idempotent.
type Directory interface {
	GetByID(ctx context.Context, id uint64) (*model.Employee, error)
	AppendAssignment(ctx context.Context, employeeID, deskID uint64) error
	RemoveAssignment(ctx context.Context, deskID uint64) error
}

// linkRetries bounds the retry loop for the non-atomic second commit
// step.  An assigned-but-unlinked desk after exhaustion is a recoverable
// inconsistency handled by the directory's repair pass.
const linkRetries = 3

// Engine orchestrates discovery → filtering → scoring → commit.  All
// operations are safe for concurrent use: the only mutual exclusion in
// the system is the per-desk compare-and-set inside the store, so the
// engine never assumes an uncontended read-then-write.
type Engine struct {
	desks DeskStore
	dir   Directory
	eval  *policy.Evaluator
	now   func() time.Time
}

// NewEngine builds an Engine.  A nil clock defaults to time.Now.
func NewEngine(desks DeskStore, dir Directory, eval *policy.Evaluator, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{desks: desks, dir: dir, eval: eval, now: now}
}

type candidate struct {
	desk  *model.Desk
	score int
}

// rankEligible filters desks through the policy evaluator and orders
// the survivors by score descending, then desk id ascending.  The id
// tie-break makes the winner deterministic under any input permutation.
func (e *Engine) rankEligible(ctx context.Context, desks []model.Desk, emp *model.Employee, date time.Time) ([]candidate, error) {
	out := make([]candidate, 0, len(desks))
	for i := range desks {
		d := &desks[i]
		reason, err := e.eval.Evaluate(ctx, d, emp, date)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			continue
		}
		out = append(out, candidate{desk: d, score: Score(d, emp)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].desk.ID < out[j].desk.ID
	})
	return out, nil
}

// FindOptimal is the read-only planning query: it returns the best
// eligible available desk for the employee on the target date without
// committing anything.  The result is advisory and may be stale by the
// time Assign runs, which is why Assign re-validates.
func (e *Engine) FindOptimal(ctx context.Context, employeeID uint64, date time.Time) (*model.Desk, error) {
	emp, err := e.dir.GetByID(ctx, employeeID)
	if err != nil {
		return nil, wrapDirectoryErr(err, employeeID)
	}
	available, err := e.desks.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	ranked, err := e.rankEligible(ctx, available, emp, date)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, noSuitableDesk("no available desk satisfies the assignment policies")
	}
	return ranked[0].desk, nil
}

// Assign commits a specific named desk to an employee.  Hard
// constraints are re-validated at commit time because the world may
// have changed since discovery; the commit itself is a single
// conditional transition and fails with Conflict when another caller
// won the race.
func (e *Engine) Assign(ctx context.Context, employeeID, deskID uint64, date time.Time) (*model.Desk, error) {
	emp, err := e.dir.GetByID(ctx, employeeID)
	if err != nil {
		return nil, wrapDirectoryErr(err, employeeID)
	}
	desk, err := e.desks.GetByID(ctx, deskID)
	if err != nil {
		return nil, wrapDeskErr(err, deskID)
	}
	switch desk.Status {
	case model.StatusAvailable:
		// proceed
	case model.StatusAssigned:
		return nil, conflict("desk %s is already assigned", desk.DeskCode)
	default:
		return nil, ineligible("desk " + desk.DeskCode + " is under " + string(desk.Status))
	}
	reason, err := e.eval.Evaluate(ctx, desk, emp, date)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return nil, ineligible(reason)
	}
	return e.commit(ctx, emp, desk, date)
}

// AssignByPreference repeats the discovery/filter/score pipeline
// restricted to desks matching the structured predicate, then commits
// the top-ranked survivor.  A lost race on one candidate falls through
// to the next-best until the list is exhausted.
func (e *Engine) AssignByPreference(ctx context.Context, employeeID uint64, q model.DeskQuery, date time.Time) (*model.Desk, error) {
	if err := ValidateQuery(q); err != nil {
		return nil, err
	}
	emp, err := e.dir.GetByID(ctx, employeeID)
	if err != nil {
		return nil, wrapDirectoryErr(err, employeeID)
	}
	matching, err := e.desks.QueryAvailable(ctx, q)
	if err != nil {
		return nil, err
	}
	ranked, err := e.rankEligible(ctx, matching, emp, date)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, noSuitableDesk("no available desk matches the preference query and the assignment policies")
	}
	for _, c := range ranked {
		desk, err := e.commit(ctx, emp, c.desk, date)
		if err == nil {
			return desk, nil
		}
		if KindOf(err) == KindConflict {
			continue // claimed concurrently, try the next-best candidate
		}
		return nil, err
	}
	return nil, noSuitableDesk("all suitable desks were claimed by concurrent assignments")
}

// Release returns an assigned desk to the available pool and unlinks it
// from every employee assignment set.  Releasing a desk that exists but
// is not assigned is a no-op success; only an unknown desk fails.
// last_used is deliberately left intact so the sanitization window
// keeps counting from the last assignment.
func (e *Engine) Release(ctx context.Context, deskID uint64) error {
	if _, err := e.desks.GetByID(ctx, deskID); err != nil {
		return wrapDeskErr(err, deskID)
	}
	if _, err := e.desks.CompareAndSetAvailable(ctx, deskID); err != nil {
		return err
	}
	return e.dir.RemoveAssignment(ctx, deskID)
}

// commit performs the two-step commit protocol: the atomic conditional
// status transition, then the employee-side link.  The first step is
// the correctness boundary; the second is retried and, if it still
// fails, logged for the directory repair pass rather than rolling back
// a successful assignment.
func (e *Engine) commit(ctx context.Context, emp *model.Employee, desk *model.Desk, date time.Time) (*model.Desk, error) {
	ts := date.UTC()
	ok, err := e.desks.CompareAndSetAssigned(ctx, desk.ID, emp.ID, ts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conflict("desk %s was claimed by a concurrent assignment", desk.DeskCode)
	}

	var linkErr error
	for i := 0; i < linkRetries; i++ {
		if linkErr = e.dir.AppendAssignment(ctx, emp.ID, desk.ID); linkErr == nil {
			break
		}
	}
	if linkErr != nil {
		log.Printf("allocation: desk %d assigned to employee %d but link write failed after %d attempts: %v",
			desk.ID, emp.ID, linkRetries, linkErr)
	}

	committed := *desk
	committed.Status = model.StatusAssigned
	empID := emp.ID
	committed.AssignedTo = &empID
	committed.LastUsed = &ts
	return &committed, nil
}
