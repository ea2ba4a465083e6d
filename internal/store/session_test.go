package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func newSession(started time.Time, outcome string) *Session {
	return &Session{
		ID:              uuid.NewString(),
		StartedAt:       started,
		EndedAt:         started.Add(90 * time.Second),
		Outcome:         outcome,
		FramesSubmitted: 120,
		HandFrames:      80,
	}
}

func TestSessionRepository_CreateGet(t *testing.T) {
	repo := newTestStore(t).Sessions()

	sess := newSession(time.Now().Truncate(time.Second), "failed")
	sess.ErrorReason = "permission-denied"

	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Outcome != "failed" || got.ErrorReason != "permission-denied" {
		t.Errorf("got %+v", got)
	}
	if got.FramesSubmitted != 120 || got.HandFrames != 80 {
		t.Errorf("frame counts = %d/%d, want 120/80", got.FramesSubmitted, got.HandFrames)
	}
	if !got.StartedAt.Equal(sess.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, sess.StartedAt)
	}
	if got.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", got.Duration())
	}

	if _, err := repo.GetByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(nope) error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_RejectsUnknownOutcome(t *testing.T) {
	repo := newTestStore(t).Sessions()

	if err := repo.Create(newSession(time.Now(), "exploded")); err == nil {
		t.Error("Create() should reject an unknown outcome")
	}
}

func TestSessionRepository_List(t *testing.T) {
	repo := newTestStore(t).Sessions()

	base := time.Now().Truncate(time.Second)
	var ids []string
	for i := 0; i < 5; i++ {
		sess := newSession(base.Add(time.Duration(i)*time.Minute), "stopped")
		if err := repo.Create(sess); err != nil {
			t.Fatalf("Create() %d error = %v", i, err)
		}
		ids = append(ids, sess.ID)
	}

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: 5},
		{limit: 3, want: 3},
		{limit: 10, want: 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit %d", tt.limit), func(t *testing.T) {
			got, err := repo.List(tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("List() returned %d, want %d", len(got), tt.want)
			}
			if got[0].ID != ids[4] {
				t.Error("List() should return newest first")
			}
		})
	}

	n, err := repo.DeleteBefore(base.Add(2 * time.Minute))
	if err != nil {
		t.Fatalf("DeleteBefore() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteBefore() removed %d, want 2", n)
	}
}
