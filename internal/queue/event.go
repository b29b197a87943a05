// Package queue defines message payloads exchanged over the message
// broker and the background consumer that turns them into an audit
// trail.  The desk store remains authoritative; the queue is additive
// observability.
package queue

// DeskAssignedEvent is published after a successful assignment commit.
// It carries enough context for downstream consumers to log or notify
// without querying the primary database.
type DeskAssignedEvent struct {
	EventID      string `json:"event_id"` // uuid for correlation/dedup
	DeskID       uint64 `json:"desk_id"`
	DeskCode     string `json:"desk_code"`
	Floor        string `json:"floor"`
	EmployeeID   uint64 `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Score        int    `json:"score"`       // preference score of the match
	AssignedAt   string `json:"assigned_at"` // RFC3339 UTC
}

// DeskReleasedEvent is published after a desk returns to the available
// pool.
type DeskReleasedEvent struct {
	EventID    string `json:"event_id"`
	DeskID     uint64 `json:"desk_id"`
	DeskCode   string `json:"desk_code"`
	Floor      string `json:"floor"`
	ReleasedAt string `json:"released_at"` // RFC3339 UTC
}
