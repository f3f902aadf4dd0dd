package models

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/samber/lo"
)

const (
	// UpdatedLayout is the layout of NewsItem.Updated.
	UpdatedLayout         = "2006-01-02 15:04:05"
	DefaultSourceTimezone = "America/Los_Angeles"

	Week = 7 * 24 * time.Hour
)

// SourceTime interprets the naive timestamps published by the news API, which
// are wall-clock times in a fixed timezone.
type SourceTime struct {
	loc *time.Location
}

func NewSourceTime(timezone string) (*SourceTime, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	return &SourceTime{loc: loc}, nil
}

func (st *SourceTime) Location() *time.Location {
	return st.loc
}

// Instant resolves updated to an absolute time. It reports false when the
// string is malformed, or when the wall time is skipped or repeated by a DST
// transition.
func (st *SourceTime) Instant(updated string) (time.Time, bool) {
	naive, err := time.Parse(UpdatedLayout, updated)
	if err != nil {
		return time.Time{}, false
	}

	wall := naive.Format(UpdatedLayout)
	var found []time.Time
	for _, probe := range []time.Time{naive.Add(-24 * time.Hour), naive, naive.Add(24 * time.Hour)} {
		_, offset := probe.In(st.loc).Zone()
		candidate := naive.Add(-time.Duration(offset) * time.Second)
		if candidate.In(st.loc).Format(UpdatedLayout) != wall {
			continue
		}
		if !lo.ContainsBy(found, candidate.Equal) {
			found = append(found, candidate)
		}
	}

	if len(found) != 1 {
		return time.Time{}, false
	}
	return found[0], true
}

// IsFresh reports whether updated lies within maxAge of now, in either direction.
func (st *SourceTime) IsFresh(updated string, now time.Time, maxAge time.Duration) bool {
	at, ok := st.Instant(updated)
	if !ok {
		return false
	}
	diff := now.Sub(at).Truncate(time.Second)
	if diff < 0 {
		diff = -diff
	}
	return diff <= maxAge
}

func (st *SourceTime) IsWithinWeeks(updated string, now time.Time, weeks uint32) bool {
	return st.IsFresh(updated, now, time.Duration(weeks)*Week)
}
