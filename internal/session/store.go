// Package session keeps parsed workflows in memory so that clients can
// evaluate gates and query diagnosis paths without re-uploading the export.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/moolen/faultlens/internal/logging"
	"github.com/moolen/faultlens/internal/workflow"
)

// ErrNotFound is returned for unknown or evicted session ids.
var ErrNotFound = errors.New("session not found")

// Entry is one parsed workflow. Its parser is only touched under mu.
type Entry struct {
	ID      string
	Created time.Time

	mu     sync.Mutex
	parser *workflow.Parser
}

// Snapshot is a copy of an entry's state that is safe to read after the
// entry's lock is released.
type Snapshot struct {
	ID         string                `json:"id"`
	Created    time.Time             `json:"created"`
	LogicGates []*workflow.LogicGate `json:"logic_gates"`
	FaultTree  *workflow.TreeNode    `json:"fault_tree"`
}

// Store is an LRU-bounded set of entries. The least recently used entry is
// dropped when the store is full.
type Store struct {
	cache        *lru.Cache[string, *Entry]
	gauge        prometheus.Gauge
	now          func() time.Time
	maxTreeNodes int
	logger       *logging.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMaxTreeNodes bounds the fault tree of every workflow parsed by the
// store. Non-positive values keep workflow.DefaultMaxTreeNodes.
func WithMaxTreeNodes(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxTreeNodes = n
		}
	}
}

// NewStore creates a store holding at most maxEntries workflows. gauge may
// be nil; otherwise it tracks the number of entries.
func NewStore(maxEntries int, gauge prometheus.Gauge, opts ...StoreOption) (*Store, error) {
	s := &Store{
		gauge:        gauge,
		now:          time.Now,
		maxTreeNodes: workflow.DefaultMaxTreeNodes,
		logger:       logging.GetLogger("session.store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	cache, err := lru.NewWithEvict(maxEntries, func(id string, _ *Entry) {
		s.logger.Debug("Evicted session %s", id)
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Create parses data with a fresh parser and stores it under a new id.
// Nothing is stored when parsing fails. The returned values are copies and
// do not follow later evaluations.
func (s *Store) Create(data []byte) (*Snapshot, *workflow.ParsedWorkflow, error) {
	p := workflow.NewParser(workflow.WithMaxTreeNodes(s.maxTreeNodes))
	parsed, err := p.ParseJSON(data)
	if err != nil {
		return nil, nil, err
	}

	e := &Entry{ID: uuid.NewString(), Created: s.now().UTC(), parser: p}
	snap := e.snapshot()
	// The caller reads parsed after the entry is published.
	parsed.LogicGates = snap.LogicGates
	parsed.FaultTree = snap.FaultTree
	s.cache.Add(e.ID, e)
	s.updateGauge()

	s.logger.DebugWithFields("session created",
		logging.Field("session", e.ID),
		logging.Field("gates", len(parsed.LogicGates)))
	return snap, parsed, nil
}

// Get returns the snapshot of id and marks it recently used.
func (s *Store) Get(id string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.WithEntry(id, func(e *Entry, _ *workflow.Parser) error {
		snap = e.snapshot()
		return nil
	})
	return snap, err
}

// WithEntry runs fn with exclusive access to the entry's parser.
func (s *Store) WithEntry(id string, fn func(e *Entry, p *workflow.Parser) error) error {
	e, ok := s.cache.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e, e.parser)
}

// Evaluate sets every gate of id from params and returns the new state.
func (s *Store) Evaluate(id string, params workflow.ParamSource) (*Snapshot, error) {
	var snap *Snapshot
	err := s.WithEntry(id, func(e *Entry, p *workflow.Parser) error {
		p.EvaluateLogicGates(params)
		snap = e.snapshot()
		return nil
	})
	return snap, err
}

// Path returns the diagnosis path to conclusion within id.
func (s *Store) Path(id, conclusion string) ([]string, error) {
	var path []string
	err := s.WithEntry(id, func(_ *Entry, p *workflow.Parser) error {
		path = p.GetDiagnosisPath(conclusion)
		return nil
	})
	return path, err
}

// Delete drops id. It reports whether the id was present.
func (s *Store) Delete(id string) bool {
	present := s.cache.Remove(id)
	s.updateGauge()
	return present
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return s.cache.Len()
}

func (s *Store) updateGauge() {
	if s.gauge != nil {
		s.gauge.Set(float64(s.cache.Len()))
	}
}

// snapshot must be called with e.mu held or before e is published.
func (e *Entry) snapshot() *Snapshot {
	return &Snapshot{
		ID:         e.ID,
		Created:    e.Created,
		LogicGates: workflow.CloneGates(e.parser.LogicGates()),
		FaultTree:  e.parser.Tree().Clone(),
	}
}
