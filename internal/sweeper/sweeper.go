// Package sweeper purges drafts that outlived the retention window. Redis
// TTLs already bound the common case; the sweeper catches drafts whose TTL
// was refreshed by edits but whose content went stale long ago.
package sweeper

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"funding-apply/internal/common/logger"
	"funding-apply/internal/draft"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// Sweeper scans draft keys on a schedule and deletes the stale ones.
type Sweeper struct {
	rdb       *redis.Client
	retention time.Duration
	logger    logger.Logger
	cron      *cron.Cron
	now       func() time.Time
}

func New(rdb *redis.Client, retention time.Duration, log logger.Logger) *Sweeper {
	return &Sweeper{
		rdb:       rdb,
		retention: retention,
		logger:    log.WithFields(map[string]interface{}{"component": "sweeper"}),
		cron:      cron.New(),
		now:       time.Now,
	}
}

// Start schedules the sweep using a standard five-field cron expression.
func (s *Sweeper) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		removed := s.Sweep(ctx)
		s.logger.Info("sweep finished", map[string]interface{}{
			"removed": removed,
		})
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep walks every draft key once and removes drafts saved before the
// retention cutoff. Unreadable envelopes are removed too, since nothing can
// ever resume from them.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.retention)
	removed := 0

	iter := s.rdb.Scan(ctx, 0, draft.DraftKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.rdb.Get(ctx, key).Result()
		if err != nil {
			continue
		}

		var env draft.Envelope
		stale := false
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			stale = true
		} else if env.SavedAt.Before(cutoff) {
			stale = true
		}
		if !stale {
			continue
		}

		session := strings.TrimPrefix(key, draft.DraftKey(""))
		if err := s.rdb.Del(ctx, key, draft.StepKey(session)).Err(); err != nil {
			s.logger.Warn("stale draft delete failed", map[string]interface{}{
				"key":   key,
				"error": err,
			})
			continue
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("draft scan failed", map[string]interface{}{
			"error": err,
		})
	}
	return removed
}
