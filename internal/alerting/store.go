package alerting

import (
	"fmt"
	"sort"
	"time"
)

// DefaultAlertRetention is how long resolved alerts are kept.
const DefaultAlertRetention = 24 * time.Hour

// AlertStore holds alerts and enforces the one-firing-alert-per-rule
// invariant and the retention policy for resolved alerts.
// It is not safe for concurrent use; Engine serializes access.
type AlertStore struct {
	retention time.Duration
	alerts    map[string]*Alert
	// firing maps rule id to the id of its firing alert.
	firing map[string]string
	// seq orders alerts created within the same millisecond.
	seq     map[string]uint64
	nextSeq uint64
}

// NewAlertStore creates a store that keeps resolved alerts for retention.
func NewAlertStore(retention time.Duration) *AlertStore {
	if retention <= 0 {
		retention = DefaultAlertRetention
	}
	return &AlertStore{
		retention: retention,
		alerts:    make(map[string]*Alert),
		firing:    make(map[string]string),
		seq:       make(map[string]uint64),
	}
}

// FiringFor returns the firing alert for a rule, or nil.
func (s *AlertStore) FiringFor(ruleID string) *Alert {
	id, ok := s.firing[ruleID]
	if !ok {
		return nil
	}
	return s.alerts[id]
}

// NextID derives a unique alert id from the rule id and breach time.
func (s *AlertStore) NextID(ruleID string, at time.Time) string {
	base := fmt.Sprintf("%s-%d", ruleID, at.UnixMilli())
	id := base
	for n := 2; ; n++ {
		if _, taken := s.alerts[id]; !taken {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

// Put stores a new alert. A firing alert becomes the rule's firing alert.
func (s *AlertStore) Put(a *Alert) {
	if _, ok := s.alerts[a.ID]; !ok {
		s.nextSeq++
		s.seq[a.ID] = s.nextSeq
	}
	s.alerts[a.ID] = a
	if a.Status == StatusFiring {
		s.firing[a.RuleID] = a.ID
	}
}

// Get returns an alert by id, or nil.
func (s *AlertStore) Get(id string) *Alert {
	return s.alerts[id]
}

// Resolve transitions a firing alert to resolved. It returns the alert and
// true on success; unknown or already resolved ids return false.
func (s *AlertStore) Resolve(id string, at time.Time) (*Alert, bool) {
	a, ok := s.alerts[id]
	if !ok || a.Status != StatusFiring {
		return nil, false
	}
	a.Status = StatusResolved
	resolvedAt := at
	a.ResolvedAt = &resolvedAt
	if s.firing[a.RuleID] == id {
		delete(s.firing, a.RuleID)
	}
	return a, true
}

// Active returns firing alerts, newest first.
func (s *AlertStore) Active() []*Alert {
	out := make([]*Alert, 0, len(s.firing))
	for _, id := range s.firing {
		out = append(out, s.alerts[id])
	}
	s.sortNewestFirst(out)
	return out
}

// History returns up to limit alerts of any status, newest first.
// A non-positive limit returns all alerts.
func (s *AlertStore) History(limit int) []*Alert {
	out := make([]*Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, a)
	}
	s.sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Len returns the number of stored alerts.
func (s *AlertStore) Len() int {
	return len(s.alerts)
}

// FiringCount returns the number of firing alerts.
func (s *AlertStore) FiringCount() int {
	return len(s.firing)
}

// Sweep removes resolved alerts whose timestamp is older than the
// retention window. Firing alerts are never removed.
func (s *AlertStore) Sweep(now time.Time) int {
	cutoff := now.Add(-s.retention)
	removed := 0
	for id, a := range s.alerts {
		if a.Status == StatusResolved && a.Timestamp.Before(cutoff) {
			delete(s.alerts, id)
			delete(s.seq, id)
			removed++
		}
	}
	return removed
}

func (s *AlertStore) sortNewestFirst(alerts []*Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Timestamp.Equal(alerts[j].Timestamp) {
			return s.seq[alerts[i].ID] > s.seq[alerts[j].ID]
		}
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})
}
