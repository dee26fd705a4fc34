// Package checkpoint keeps append-only, tick-ascending (tick, value) series
// per (entity, metric) and answers point-in-time queries by binary search.
package checkpoint

import (
	"sort"
	"sync"

	"github.com/pthm-cable/verdant/fault"
)

// ErrOutOfOrder is returned when an insert would break the tick-ascending
// invariant of a series.
var ErrOutOfOrder = fault.New(fault.Validation, "checkpoint tick older than series head")

// Key identifies one series.
type Key struct {
	Entity uint64
	Metric string
}

// Point is a recorded (tick, value) snapshot.
type Point struct {
	Tick  uint64
	Value uint64
}

// Store holds all checkpoint series. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	series map[Key][]Point
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{series: make(map[Key][]Point)}
}

// Add records value at tick. Within a single tick the last write wins:
// if the series head already sits at tick, its value is overwritten.
// Ticks older than the head are rejected.
func (s *Store) Add(k Key, tick, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pts := s.series[k]
	if n := len(pts); n > 0 {
		last := &pts[n-1]
		if tick < last.Tick {
			return ErrOutOfOrder
		}
		if tick == last.Tick {
			last.Value = value
			return nil
		}
	}
	s.series[k] = append(pts, Point{Tick: tick, Value: value})
	return nil
}

// Query returns the value in effect at tick: the rightmost checkpoint with
// Tick <= tick. ok is false when no checkpoint precedes tick.
func (s *Store) Query(k Key, tick uint64) (value uint64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pts := s.series[k]
	// First index with Tick > tick; the answer sits just before it.
	i := sort.Search(len(pts), func(i int) bool { return pts[i].Tick > tick })
	if i == 0 {
		return 0, false
	}
	return pts[i-1].Value, true
}

// Latest returns the most recent checkpoint of a series.
func (s *Store) Latest(k Key) (Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pts := s.series[k]
	if len(pts) == 0 {
		return Point{}, false
	}
	return pts[len(pts)-1], true
}

// Len returns the number of checkpoints in a series.
func (s *Store) Len(k Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[k])
}

// Series is one (entity, metric) run of checkpoints in serializable form.
type Series struct {
	Key    Key
	Points []Point
}

// Export dumps every series, sorted by entity then metric for stable
// output.
func (s *Store) Export() []Series {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Series, 0, len(s.series))
	for k, pts := range s.series {
		cp := make([]Point, len(pts))
		copy(cp, pts)
		out = append(out, Series{Key: k, Points: cp})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Entity != out[j].Key.Entity {
			return out[i].Key.Entity < out[j].Key.Entity
		}
		return out[i].Key.Metric < out[j].Key.Metric
	})
	return out
}

// Restore replaces the store contents with the given series.
func (s *Store) Restore(series []Series) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series = make(map[Key][]Point, len(series))
	for _, sr := range series {
		pts := make([]Point, len(sr.Points))
		copy(pts, sr.Points)
		s.series[sr.Key] = pts
	}
}
