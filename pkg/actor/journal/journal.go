// Package journal provides the append-only trace log for the tool-execution
// pipeline.
//
// Every tool turn opens a pending async entry when it begins and ends it
// with the final result; point-in-time events (state transitions, failed
// time-of-use checks) are logged directly. Entries are keyed by task so
// observability tooling can retrieve the full history of one task later.
package journal

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// Track partitions entries by subsystem.
type Track string

// TrackActor is the track used by the tool-execution pipeline.
const TrackActor Track = "actor"

// Entry is one journal record. Async entries appear twice: once with
// Phase "begin" when opened and once with Phase "end" when closed.
type Entry struct {
	ID      string
	TaskID  task.ID
	Track   Track
	Event   string
	Phase   string
	Message string
	URL     string
	At      time.Time
}

// Journal is an append-only log. Safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
}

// New creates an empty journal.
func New() *Journal {
	return &Journal{}
}

// Log appends a point-in-time entry.
func (j *Journal) Log(url string, taskID task.ID, track Track, event, message string) {
	j.append(Entry{
		ID:      uuid.NewString(),
		TaskID:  taskID,
		Track:   track,
		Event:   event,
		Message: message,
		URL:     url,
		At:      time.Now(),
	})
}

// CreatePendingAsyncEntry opens an async entry that will be closed later by
// EndEntry. The begin record is appended immediately.
func (j *Journal) CreatePendingAsyncEntry(url string, taskID task.ID, track Track, event, detail string) *PendingAsyncEntry {
	id := uuid.NewString()
	j.append(Entry{
		ID:      id,
		TaskID:  taskID,
		Track:   track,
		Event:   event,
		Phase:   "begin",
		Message: detail,
		URL:     url,
		At:      time.Now(),
	})
	return &PendingAsyncEntry{
		journal: j,
		id:      id,
		taskID:  taskID,
		track:   track,
		event:   event,
		url:     url,
	}
}

// EntriesForTask returns a snapshot of all entries logged for a task, in
// append order.
func (j *Journal) EntriesForTask(id task.ID) []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []Entry
	for _, e := range j.entries {
		if e.TaskID == id {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns a snapshot of the whole journal.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

func (j *Journal) append(e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
}

// PendingAsyncEntry is an open async journal entry. EndEntry closes it;
// closing twice is a no-op.
type PendingAsyncEntry struct {
	journal *Journal
	id      string
	taskID  task.ID
	track   Track
	event   string
	url     string

	mu    sync.Mutex
	ended bool
}

// EndEntry appends the end record with the final detail string.
func (p *PendingAsyncEntry) EndEntry(detail string) {
	p.mu.Lock()
	if p.ended {
		p.mu.Unlock()
		return
	}
	p.ended = true
	p.mu.Unlock()

	p.journal.append(Entry{
		ID:      p.id,
		TaskID:  p.taskID,
		Track:   p.track,
		Event:   p.event,
		Phase:   "end",
		Message: detail,
		URL:     p.url,
		At:      time.Now(),
	})
}
