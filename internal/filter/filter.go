// Package filter carves a (group set × time range) subset out of the catalog.
// Selection is pure and read-only; it can run any number of times against
// the same index and always yields the same ordered result.
package filter

import (
	"sort"
	"time"

	"chatsweep/internal/catalog"
)

// GroupSet names the groups a selection targets. The zero value matches
// nothing; AllGroups matches everything including entries whose group has no
// GroupInfo.
type GroupSet struct {
	all bool
	ids map[string]struct{}
}

// AllGroups matches every entry regardless of group id.
func AllGroups() GroupSet {
	return GroupSet{all: true}
}

// Groups matches exactly the given group ids. An empty list matches nothing.
func Groups(ids ...string) GroupSet {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return GroupSet{ids: set}
}

// Contains reports whether the set matches the given group id.
func (g GroupSet) Contains(id string) bool {
	if g.all {
		return true
	}
	_, ok := g.ids[id]
	return ok
}

// All reports whether the set matches every group.
func (g GroupSet) All() bool { return g.all }

// TimeRange is an inclusive [From, To] interval over entry send times.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// AllTime spans every representable send time.
func AllTime() TimeRange {
	return TimeRange{
		From: time.Unix(0, 0).UTC(),
		To:   time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC),
	}
}

// OlderThan spans from the epoch to now minus the given number of days,
// inclusive. It mirrors the "keep the last n days" operator choice.
func OlderThan(days int, now time.Time) TimeRange {
	return TimeRange{
		From: time.Unix(0, 0).UTC(),
		To:   now.UTC().Add(-time.Duration(days) * 24 * time.Hour),
	}
}

// Contains reports whether ts falls inside the interval, both ends inclusive.
func (r TimeRange) Contains(ts time.Time) bool {
	return !ts.Before(r.From) && !ts.After(r.To)
}

// Select returns the catalog entries matching the group set and time range,
// ordered by group id then by send time ascending, with the reference id as
// the final tiebreak. The ordering is deterministic across calls so operator
// review of a pending batch is stable.
func Select(index *catalog.Index, groups GroupSet, rng TimeRange) []*catalog.Entry {
	var out []*catalog.Entry
	for _, e := range index.Entries() {
		if !groups.Contains(e.GroupID) {
			continue
		}
		if !rng.Contains(e.SentAt) {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].GroupID != out[j].GroupID {
			return out[i].GroupID < out[j].GroupID
		}
		if !out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].SentAt.Before(out[j].SentAt)
		}
		return out[i].ReferenceID < out[j].ReferenceID
	})
	return out
}
