package sweeper

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"funding-apply/internal/common/logger"
	"funding-apply/internal/draft"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDraft(t *testing.T, mr *miniredis.Miniredis, session string, savedAt time.Time) {
	t.Helper()
	payload, err := json.Marshal(draft.Envelope{
		Application: draft.Application{LegalName: "Acme"},
		SavedAt:     savedAt,
	})
	require.NoError(t, err)
	require.NoError(t, mr.Set(draft.DraftKey(session), string(payload)))
	require.NoError(t, mr.Set(draft.StepKey(session), "2"))
}

func TestSweepRemovesOnlyStaleDrafts(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	s := New(rdb, 30*24*time.Hour, logger.NewTestLogger(t))
	s.now = func() time.Time { return now }

	seedDraft(t, mr, "fresh", now.Add(-time.Hour))
	seedDraft(t, mr, "stale", now.Add(-31*24*time.Hour))

	removed := s.Sweep(context.Background())
	assert.Equal(t, 1, removed)

	assert.True(t, mr.Exists(draft.DraftKey("fresh")))
	assert.True(t, mr.Exists(draft.StepKey("fresh")))
	assert.False(t, mr.Exists(draft.DraftKey("stale")))
	assert.False(t, mr.Exists(draft.StepKey("stale")))
}

func TestSweepRemovesUnreadableEnvelopes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set(draft.DraftKey("corrupt"), "{not json"))

	s := New(rdb, 30*24*time.Hour, logger.NewTestLogger(t))
	removed := s.Sweep(context.Background())

	assert.Equal(t, 1, removed)
	assert.False(t, mr.Exists(draft.DraftKey("corrupt")))
}

func TestSweepEmptyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := New(rdb, time.Hour, logger.NewTestLogger(t))
	assert.Zero(t, s.Sweep(context.Background()))
}
