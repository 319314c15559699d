package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"funding-apply/internal/common/logger"
	"funding-apply/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	draftKeyPrefix = "apply:draft:"
	stepKeyPrefix  = "apply:step:"
)

// Envelope wraps a stored draft with its save time, which the retention
// sweeper reads.
type Envelope struct {
	Application Application `json:"application"`
	SavedAt     time.Time   `json:"savedAt"`
}

// Store persists drafts in redis under two keys per session: the serialized
// draft and the current step. Per the store contract, write and delete
// failures are logged and swallowed, never surfaced to the caller.
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewStore(rdb *redis.Client, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		rdb:    rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "draft-store"}),
	}
}

func DraftKey(session string) string {
	return draftKeyPrefix + session
}

func StepKey(session string) string {
	return stepKeyPrefix + session
}

// Save writes the draft and step. Attachments are not part of Application,
// so nothing binary can leak into the store.
func (s *Store) Save(ctx context.Context, session string, app *Application, step int) {
	payload, err := json.Marshal(Envelope{Application: *app, SavedAt: time.Now().UTC()})
	if err != nil {
		metrics.DraftSaves.WithLabelValues("error").Inc()
		s.logger.Error("draft marshal failed", map[string]interface{}{
			"session": session,
			"error":   err,
		})
		return
	}

	if err := s.rdb.Set(ctx, DraftKey(session), payload, s.ttl).Err(); err != nil {
		metrics.DraftSaves.WithLabelValues("error").Inc()
		s.logger.Error("draft save failed", map[string]interface{}{
			"session": session,
			"error":   err,
		})
		return
	}
	if err := s.rdb.Set(ctx, StepKey(session), fmt.Sprintf("%d", step), s.ttl).Err(); err != nil {
		metrics.DraftSaves.WithLabelValues("error").Inc()
		s.logger.Error("draft step save failed", map[string]interface{}{
			"session": session,
			"error":   err,
		})
		return
	}
	metrics.DraftSaves.WithLabelValues("ok").Inc()
}

// Load reads both keys. A missing or unparsable draft yields ok=false.
func (s *Store) Load(ctx context.Context, session string) (*Application, int, bool) {
	raw, err := s.rdb.Get(ctx, DraftKey(session)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("draft load failed", map[string]interface{}{
				"session": session,
				"error":   err,
			})
		}
		return nil, 0, false
	}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		s.logger.Warn("draft unparsable, ignoring", map[string]interface{}{
			"session": session,
			"error":   err,
		})
		return nil, 0, false
	}

	step := 1
	if rawStep, err := s.rdb.Get(ctx, StepKey(session)).Result(); err == nil {
		if parsed, err := parseStep(rawStep); err == nil {
			step = parsed
		}
	}

	return &env.Application, step, true
}

// Clear removes both keys. Failures are swallowed.
func (s *Store) Clear(ctx context.Context, session string) {
	if err := s.rdb.Del(ctx, DraftKey(session), StepKey(session)).Err(); err != nil {
		s.logger.Warn("draft clear failed", map[string]interface{}{
			"session": session,
			"error":   err,
		})
	}
}

func parseStep(raw string) (int, error) {
	var step int
	if _, err := fmt.Sscanf(raw, "%d", &step); err != nil {
		return 0, err
	}
	if step < 1 || step > 6 {
		return 0, fmt.Errorf("step out of range: %d", step)
	}
	return step, nil
}
