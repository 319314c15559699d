package draft

import (
	"context"
	"sync"
	"time"
)

// Saver debounces draft writes: each Queue call resets a per-session trailing
// timer, so only the last mutation inside the window hits redis. Saves are
// suppressed for post-submission steps and while preview mode is active.
type Saver struct {
	store *Store
	delay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewSaver(store *Store, delay time.Duration) *Saver {
	return &Saver{
		store:  store,
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

// Queue schedules a save of the given draft snapshot. Steps 5 and 6 are
// post-submission views and never persisted; preview mode never persists.
func (s *Saver) Queue(session string, app Application, step int, preview bool) {
	if step >= 5 || preview {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[session]; ok {
		t.Stop()
	}
	s.timers[session] = time.AfterFunc(s.delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.store.Save(ctx, session, &app, step)

		s.mu.Lock()
		delete(s.timers, session)
		s.mu.Unlock()
	})
}

// Cancel drops any pending save for the session, used after a successful
// submission clears the draft.
func (s *Saver) Cancel(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[session]; ok {
		t.Stop()
		delete(s.timers, session)
	}
}

// Stop cancels all pending saves.
func (s *Saver) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for session, t := range s.timers {
		t.Stop()
		delete(s.timers, session)
	}
}
