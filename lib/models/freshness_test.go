package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pacific(t *testing.T) *SourceTime {
	t.Helper()
	st, err := NewSourceTime(DefaultSourceTimezone)
	require.NoError(t, err)
	return st
}

func TestInstantUsesSourceTimezone(t *testing.T) {
	st := pacific(t)

	at, ok := st.Instant("2024-06-01 12:00:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC), at.UTC())

	at, ok = st.Instant("2024-01-15 08:30:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 16, 30, 0, 0, time.UTC), at.UTC())
}

func TestInstantRejectsDSTGaps(t *testing.T) {
	st := pacific(t)

	_, ok := st.Instant("2024-03-10 02:30:00")
	assert.False(t, ok, "skipped wall time")

	_, ok = st.Instant("2024-11-03 01:30:00")
	assert.False(t, ok, "repeated wall time")

	_, ok = st.Instant("2024-11-03 03:30:00")
	assert.True(t, ok)
}

func TestIsFreshIsSymmetric(t *testing.T) {
	st := pacific(t)
	item := "2024-06-01 12:00:00"
	at, ok := st.Instant(item)
	require.True(t, ok)

	for _, threshold := range []time.Duration{0, time.Second, 2 * time.Minute, time.Hour} {
		past := at.Add(threshold)
		future := at.Add(-threshold)
		assert.Equal(t, st.IsFresh(item, past, threshold), st.IsFresh(item, future, threshold), threshold)
		assert.True(t, st.IsFresh(item, past, threshold), threshold)

		assert.False(t, st.IsFresh(item, at.Add(threshold+time.Second), threshold))
		assert.False(t, st.IsFresh(item, at.Add(-threshold-time.Second), threshold))
	}
}

func TestMalformedTimestampsAreNeverFresh(t *testing.T) {
	st := pacific(t)
	now := time.Now()

	for _, updated := range []string{
		"",
		"yesterday",
		"2024-06-01",
		"2024-06-01T12:00:00Z",
		"2024-13-01 12:00:00",
		"2024-06-01 25:00:00",
	} {
		assert.False(t, st.IsFresh(updated, now, 100*Week), updated)
		assert.False(t, st.IsWithinWeeks(updated, now, 52), updated)
	}
}

func TestIsWithinWeeks(t *testing.T) {
	st := pacific(t)
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, st.Location())
	tenDaysAgo := now.Add(-10 * 24 * time.Hour).Format(UpdatedLayout)

	assert.False(t, st.IsWithinWeeks(tenDaysAgo, now, 1))
	assert.True(t, st.IsWithinWeeks(tenDaysAgo, now, 2))
}

func TestNewSourceTimeUnknownZone(t *testing.T) {
	_, err := NewSourceTime("Mars/Olympus_Mons")
	assert.Error(t, err)
}
