package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fiffu/stobot/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.sqlite")), &gorm.Config{})
	require.NoError(t, err)
	j, err := New(db, zap.NewNop())
	require.NoError(t, err)
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, 1, models.Post{ArticleID: 100, Title: "first"}, base))
	require.NoError(t, j.Record(ctx, 2, models.Post{ArticleID: 101, Title: "second"}, base.Add(time.Minute)))
	require.NoError(t, j.Record(ctx, 1, models.Post{ArticleID: 102, Title: "third"}, base.Add(2*time.Minute)))

	rows, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, uint64(102), rows[0].ArticleID)
	assert.Equal(t, uint64(101), rows[1].ArticleID)
}

func TestLastFor(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	last, err := j.LastFor(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, j.Record(ctx, 1, models.Post{ArticleID: 100, Title: "first"}, base))
	require.NoError(t, j.Record(ctx, 1, models.Post{ArticleID: 102, Title: "later"}, base.Add(time.Hour)))
	require.NoError(t, j.Record(ctx, 2, models.Post{ArticleID: 103, Title: "elsewhere"}, base.Add(2*time.Hour)))

	last, err = j.LastFor(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, uint64(102), last.ArticleID)
	assert.Equal(t, "later", last.Title)
	assert.True(t, base.Add(time.Hour).Equal(last.DeliveredAt))
}
