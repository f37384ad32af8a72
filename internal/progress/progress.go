// Package progress owns the mutable state of a distillation run.
//
// Counters and the log buffer are mutated by a single owning goroutine;
// pipeline workers never touch them directly, they only emit typed update
// messages. This keeps batch workers free of shared-state races.
package progress

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Stage identifies where a run currently is.
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageQuestions    Stage = "questions"
	StageDatasets     Stage = "datasets"
	StageMultiTurn    Stage = "multi-turn-datasets"
	StageCompleted    Stage = "completed"
)

// StageLevel returns the stage for tree construction at the given depth,
// e.g. "level1", "level2".
func StageLevel(level int) Stage {
	if level < 1 {
		level = 1
	}
	return Stage("level" + strconv.Itoa(level))
}

// Field names a numeric counter in the run state.
type Field string

const (
	FieldTagsTotal      Field = "tags_total"
	FieldTagsBuilt      Field = "tags_built"
	FieldQuestionsTotal Field = "questions_total"
	FieldQuestionsBuilt Field = "questions_built"
	FieldDatasetsTotal  Field = "datasets_total"
	FieldDatasetsBuilt  Field = "datasets_built"
	FieldMultiTurnTotal Field = "multi_turn_total"
	FieldMultiTurnBuilt Field = "multi_turn_built"
)

// MaxLogLines caps the retained log feed; older lines are dropped FIFO.
const MaxLogLines = 200

// Snapshot is an immutable copy of the run state.
type Snapshot struct {
	Stage          Stage    `json:"stage"`
	TagsTotal      int      `json:"tagsTotal"`
	TagsBuilt      int      `json:"tagsBuilt"`
	QuestionsTotal int      `json:"questionsTotal"`
	QuestionsBuilt int      `json:"questionsBuilt"`
	DatasetsTotal  int      `json:"datasetsTotal"`
	DatasetsBuilt  int      `json:"datasetsBuilt"`
	MultiTurnTotal int      `json:"multiTurnTotal"`
	MultiTurnBuilt int      `json:"multiTurnBuilt"`
	Logs           []string `json:"logs"`
}

type opKind int

const (
	opSetStage opKind = iota
	opSetField
	opAddField
	opLog
	opReset
	opSnapshot
)

// update is the closed message set applied by the owning goroutine.
// opSetField replaces a counter, opAddField adds to it.
type update struct {
	kind  opKind
	stage Stage
	field Field
	value int
	line  string
	reply chan Snapshot
}

// Tracker serializes all state mutation for one run.
type Tracker struct {
	ops  chan update
	done chan struct{}

	// onChange receives a snapshot after every applied update, invoked from
	// the owning goroutine.
	onChange func(Snapshot)

	mu   sync.RWMutex
	last Snapshot

	closeOnce sync.Once
}

// NewTracker starts the owning goroutine with the state reset to
// StageInitializing.
func NewTracker() *Tracker {
	return NewTrackerWithNotify(nil)
}

// NewTrackerWithNotify is NewTracker with a change hook for streaming
// consumers. onChange may be nil.
func NewTrackerWithNotify(onChange func(Snapshot)) *Tracker {
	t := &Tracker{
		ops:      make(chan update, 64),
		done:     make(chan struct{}),
		onChange: onChange,
		last:     Snapshot{Stage: StageInitializing},
	}
	go t.loop()
	return t
}

func (t *Tracker) loop() {
	state := Snapshot{Stage: StageInitializing}
	for {
		var op update
		select {
		case <-t.done:
			return
		case op = <-t.ops:
		}

		if op.kind == opSnapshot {
			snap := state
			snap.Logs = append([]string(nil), state.Logs...)
			op.reply <- snap
			continue
		}

		state = applyUpdate(state, op)

		snap := state
		snap.Logs = append([]string(nil), state.Logs...)
		t.mu.Lock()
		t.last = snap
		t.mu.Unlock()
		if t.onChange != nil {
			t.onChange(snap)
		}
	}
}

func applyUpdate(state Snapshot, op update) Snapshot {
	switch op.kind {
	case opSetStage:
		state.Stage = op.stage
	case opSetField:
		setCounter(&state, op.field, op.value)
	case opAddField:
		setCounter(&state, op.field, counter(state, op.field)+op.value)
	case opLog:
		state.Logs = append(state.Logs, op.line)
		if n := len(state.Logs) - MaxLogLines; n > 0 {
			state.Logs = append([]string(nil), state.Logs[n:]...)
		}
	case opReset:
		state = Snapshot{Stage: StageInitializing}
	}
	return state
}

func counter(s Snapshot, f Field) int {
	switch f {
	case FieldTagsTotal:
		return s.TagsTotal
	case FieldTagsBuilt:
		return s.TagsBuilt
	case FieldQuestionsTotal:
		return s.QuestionsTotal
	case FieldQuestionsBuilt:
		return s.QuestionsBuilt
	case FieldDatasetsTotal:
		return s.DatasetsTotal
	case FieldDatasetsBuilt:
		return s.DatasetsBuilt
	case FieldMultiTurnTotal:
		return s.MultiTurnTotal
	case FieldMultiTurnBuilt:
		return s.MultiTurnBuilt
	}
	return 0
}

func setCounter(s *Snapshot, f Field, v int) {
	switch f {
	case FieldTagsTotal:
		s.TagsTotal = v
	case FieldTagsBuilt:
		s.TagsBuilt = v
	case FieldQuestionsTotal:
		s.QuestionsTotal = v
	case FieldQuestionsBuilt:
		s.QuestionsBuilt = v
	case FieldDatasetsTotal:
		s.DatasetsTotal = v
	case FieldDatasetsBuilt:
		s.DatasetsBuilt = v
	case FieldMultiTurnTotal:
		s.MultiTurnTotal = v
	case FieldMultiTurnBuilt:
		s.MultiTurnBuilt = v
	}
}

func (t *Tracker) send(op update) {
	if t == nil {
		return
	}
	select {
	case <-t.done:
	case t.ops <- op:
	}
}

// SetStage transitions the run to the given stage.
func (t *Tracker) SetStage(stage Stage) { t.send(update{kind: opSetStage, stage: stage}) }

// Set replaces a counter with an absolute value.
func (t *Tracker) Set(field Field, value int) {
	t.send(update{kind: opSetField, field: field, value: value})
}

// Add increments a counter by delta.
func (t *Tracker) Add(field Field, delta int) {
	t.send(update{kind: opAddField, field: field, value: delta})
}

// Logf appends a formatted line to the bounded log feed.
func (t *Tracker) Logf(format string, args ...any) {
	line := strings.TrimSpace(fmt.Sprintf(format, args...))
	if line == "" {
		return
	}
	t.send(update{kind: opLog, line: line})
}

// Reset zeroes every counter, clears logs and returns to StageInitializing.
func (t *Tracker) Reset() { t.send(update{kind: opReset}) }

// Snapshot returns a copy of the state after all previously sent updates
// have been applied. After Close it keeps returning the final state.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{Stage: StageInitializing}
	}
	reply := make(chan Snapshot, 1)
	select {
	case <-t.done:
		return t.lastSnapshot()
	case t.ops <- update{kind: opSnapshot, reply: reply}:
	}
	select {
	case <-t.done:
		return t.lastSnapshot()
	case snap := <-reply:
		return snap
	}
}

func (t *Tracker) lastSnapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := t.last
	snap.Logs = append([]string(nil), t.last.Logs...)
	return snap
}

// Close stops the owning goroutine. Updates sent afterwards are dropped.
func (t *Tracker) Close() {
	if t == nil {
		return
	}
	t.closeOnce.Do(func() { close(t.done) })
}
