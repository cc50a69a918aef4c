package timing

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/giantswarm/failwatch/internal/logging"
)

// Operation names a kind of measured harness activity.
type Operation string

const (
	// TestExecution measures a single test method.
	TestExecution Operation = "TEST_EXECUTION"
	// ClassExecution measures a whole test class (suite).
	ClassExecution Operation = "CLASS_EXECUTION"
	// CollectLogs measures one diagnostic capture.
	CollectLogs Operation = "COLLECT_LOGS"
)

// Key identifies one measurement. TestMethod is empty for class-scoped
// operations.
type Key struct {
	Operation  Operation
	TestClass  string
	TestMethod string
}

// String renders the key for logs.
func (k Key) String() string {
	if k.TestMethod == "" {
		return fmt.Sprintf("%s[%s]", k.Operation, k.TestClass)
	}
	return fmt.Sprintf("%s[%s.%s]", k.Operation, k.TestClass, k.TestMethod)
}

// Record is a completed measurement.
type Record struct {
	Key
	Started  time.Time
	Duration time.Duration
}

// Store persists completed measurements.
type Store interface {
	Save(ctx context.Context, rec Record) error
}

// System tracks in-flight measurements. The zero value is not usable; call
// NewSystem.
type System struct {
	store Store
	now   func() time.Time

	mu      sync.Mutex
	running map[Key]time.Time
	records []Record
}

// NewSystem returns a System. store may be nil, in which case completed
// measurements are only kept in memory.
func NewSystem(store Store) *System {
	return &System{
		store:   store,
		now:     time.Now,
		running: make(map[Key]time.Time),
	}
}

// Start begins measuring key. It reports false, leaving the original start
// time in place, if key is already running.
func (s *System) Start(op Operation, class, method string) bool {
	k := Key{Operation: op, TestClass: class, TestMethod: method}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[k]; ok {
		return false
	}
	s.running[k] = s.now()
	return true
}

// Stop ends the measurement for key and returns its duration. It reports
// false if key was not running; that is not an error.
func (s *System) Stop(op Operation, class, method string) (Record, bool) {
	k := Key{Operation: op, TestClass: class, TestMethod: method}

	s.mu.Lock()
	started, ok := s.running[k]
	if !ok {
		s.mu.Unlock()
		return Record{}, false
	}
	delete(s.running, k)
	rec := Record{Key: k, Started: started, Duration: s.now().Sub(started)}
	s.records = append(s.records, rec)
	s.mu.Unlock()

	logging.Logger().Debug("measurement stopped", "key", k.String(), "duration", rec.Duration)
	return rec, true
}

// StopOperation stops the measurement for key and persists it when a store
// is attached. Stopping an unknown key returns nil. The only error it returns
// is a persistence failure; the measurement is stopped either way.
func (s *System) StopOperation(ctx context.Context, op Operation, class, method string) error {
	rec, ok := s.Stop(op, class, method)
	if !ok || s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("persist measurement %s: %w", rec.Key, err)
	}
	return nil
}

// Running reports whether key is currently being measured.
func (s *System) Running(op Operation, class, method string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[Key{Operation: op, TestClass: class, TestMethod: method}]
	return ok
}

// Records returns a copy of all completed measurements in completion order.
func (s *System) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}
