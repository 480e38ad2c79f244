package state

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMissThreshold is the number of consecutive snapshots a device may be
// absent from before it is evicted.
const DefaultMissThreshold = 2

// Snapshot is one committed generation of the device cache. Published
// snapshots are never mutated; readers may hold one for as long as they like.
type Snapshot struct {
	Generation uint64    `json:"generation"`
	UpdatedAt  time.Time `json:"updated_at"`
	Devices    []Device  `json:"devices"`
}

// Lookup returns the device with the given id.
func (s *Snapshot) Lookup(id string) (Device, bool) {
	if s == nil {
		return Device{}, false
	}
	i := sort.Search(len(s.Devices), func(i int) bool { return s.Devices[i].ID >= id })
	if i < len(s.Devices) && s.Devices[i].ID == id {
		return s.Devices[i], true
	}
	return Device{}, false
}

// Reachable returns the devices that are currently reachable.
func (s *Snapshot) Reachable() []Device {
	if s == nil {
		return nil
	}
	var out []Device
	for _, d := range s.Devices {
		if d.Reachable {
			out = append(out, d)
		}
	}
	return out
}

// Clone returns a deep copy safe to hand to code that may modify it.
func (s *Snapshot) Clone() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	dup := *s
	dup.Devices = make([]Device, len(s.Devices))
	for i, d := range s.Devices {
		dup.Devices[i] = d.Clone()
	}
	return dup
}

// Health describes the outcome of recent reconciliation attempts. It lives
// beside the cache rather than in it so a failed fetch never touches the
// published snapshot.
type Health struct {
	LastError           error
	LastAttempt         time.Time
	ConsecutiveFailures int
}

// IsOffline returns true when the backend has been unreachable for multiple
// reconciliations.
func (h Health) IsOffline() bool {
	return h.ConsecutiveFailures >= 2
}

// Store is the device cache. Reconcile is the only writer; Current and
// Snapshot may be called from any goroutine and never block on a writer.
type Store struct {
	// MissThreshold overrides DefaultMissThreshold when positive. Set it
	// before the first Reconcile.
	MissThreshold int

	mu      sync.Mutex // serializes writers
	misses  map[string]int
	current atomic.Pointer[Snapshot]
	health  atomic.Pointer[Health]
	now     func() time.Time
}

// NewStore returns a Store evicting devices after missThreshold consecutive
// absences (DefaultMissThreshold when <= 0).
func NewStore(missThreshold int) *Store {
	return &Store{MissThreshold: missThreshold}
}

var emptySnapshot = &Snapshot{}

// Current returns the latest committed snapshot. The result is shared and
// must be treated as read-only.
func (s *Store) Current() *Snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap
	}
	return emptySnapshot
}

// Snapshot returns a private copy of the latest committed snapshot.
func (s *Store) Snapshot() Snapshot {
	return s.Current().Clone()
}

// Health returns the latest reconciliation health record.
func (s *Store) Health() Health {
	h := s.health.Load()
	if h == nil {
		return Health{}
	}
	return *h
}

// RecordFailure notes a failed fetch. The cache content is left untouched.
func (s *Store) RecordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.Health()
	s.health.Store(&Health{
		LastError:           err,
		LastAttempt:         s.clock(),
		ConsecutiveFailures: prev.ConsecutiveFailures + 1,
	})
}

// Reconcile merges a complete backend enumeration into the cache, publishes
// the result as a new generation and returns what changed.
func (s *Store) Reconcile(devices []Device) Diff {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.misses == nil {
		s.misses = make(map[string]int)
	}
	threshold := s.MissThreshold
	if threshold <= 0 {
		threshold = DefaultMissThreshold
	}

	now := s.clock()
	prev := s.Current()
	if now.Before(prev.UpdatedAt) {
		now = prev.UpdatedAt
	}

	prevByID := make(map[string]Device, len(prev.Devices))
	for _, d := range prev.Devices {
		prevByID[d.ID] = d
	}

	diff := Diff{Generation: prev.Generation + 1}
	nextByID := make(map[string]Device, len(devices))
	for _, raw := range devices {
		d := raw.Normalize().Clone()
		if d.ID == "" {
			continue
		}
		if _, dup := nextByID[d.ID]; dup {
			continue
		}
		d.LastUpdated = now
		nextByID[d.ID] = d
		delete(s.misses, d.ID)

		old, known := prevByID[d.ID]
		if !known {
			diff.Changes = append(diff.Changes, Change{
				DeviceID: d.ID,
				Name:     d.Name,
				Field:    FieldAppeared,
				New:      d.Clone(),
			})
			continue
		}
		diff.Changes = append(diff.Changes, compareDevices(old, d)...)
	}

	for id, old := range prevByID {
		if _, present := nextByID[id]; present {
			continue
		}
		s.misses[id]++
		if s.misses[id] < threshold {
			nextByID[id] = old
			continue
		}
		delete(s.misses, id)
		diff.Changes = append(diff.Changes, Change{
			DeviceID: id,
			Name:     old.Name,
			Field:    FieldDisappeared,
			Old:      old.Clone(),
		})
	}

	next := &Snapshot{
		Generation: diff.Generation,
		UpdatedAt:  now,
		Devices:    make([]Device, 0, len(nextByID)),
	}
	for _, d := range nextByID {
		next.Devices = append(next.Devices, d)
	}
	sort.Slice(next.Devices, func(i, j int) bool { return next.Devices[i].ID < next.Devices[j].ID })
	sortChanges(diff.Changes)

	s.current.Store(next)
	s.health.Store(&Health{LastAttempt: now})
	return diff
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func sortChanges(changes []Change) {
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].DeviceID < changes[j].DeviceID
	})
}
