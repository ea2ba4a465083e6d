package app

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/ringfit/internal/store"
	"github.com/ayusman/ringfit/internal/tryon"
)

// record journals every session the controller ends.
func (a *App) record(ev tryon.Event) {
	if ev.Ended == nil || a.config.Store == nil {
		return
	}

	if err := a.config.Store.Sessions().Create(journalEntry(ev.Ended)); err != nil {
		log.Error().Err(err).Str("session", ev.Ended.ID).Msg("journal session")
		return
	}

	a.mu.Lock()
	a.recorded++
	a.mu.Unlock()
}

func journalEntry(s *tryon.Session) *store.Session {
	return &store.Session{
		ID:              s.ID,
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		Outcome:         string(s.Outcome),
		ErrorReason:     string(s.Reason),
		FramesSubmitted: s.FramesSubmitted,
		HandFrames:      s.HandFrames,
	}
}

// PruneJournal deletes sessions that started more than maxAge ago.
func (a *App) PruneJournal(maxAge time.Duration) (int64, error) {
	if a.config.Store == nil || maxAge <= 0 {
		return 0, nil
	}
	return a.config.Store.Sessions().DeleteBefore(time.Now().Add(-maxAge))
}
