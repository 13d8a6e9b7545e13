package services

import (
	"testing"
	"time"

	"github.com/mentislab/mentis/internal/models"
)

type stubStatsStore struct {
	participants []*models.Participant
}

func (s *stubStatsStore) ListParticipants() ([]*models.Participant, error) {
	return s.participants, nil
}

func TestStatsCountsByStatus(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	store := &stubStatsStore{}
	add := func(st models.Status) {
		store.participants = append(store.participants, &models.Participant{
			ID:        string(rune('a' + len(store.participants))),
			Status:    st,
			StartedAt: base.Add(time.Duration(len(store.participants)) * time.Minute),
		})
	}
	add(models.StatusCompleted)
	add(models.StatusCompleted)
	add(models.StatusInProgress)
	add(models.StatusDeclined)
	add(models.StatusExpired)
	add(models.StatusAbandoned)

	res, err := NewStatsService(store).Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	got := res.Stats
	want := models.Stats{Total: 6, InProgress: 1, Completed: 2, Declined: 1, Expired: 1, Abandoned: 1}
	if got != want {
		t.Fatalf("counts mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestRecentActivityNewestFirstAndCapped(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	store := &stubStatsStore{}
	for i := 0; i < 15; i++ {
		store.participants = append(store.participants, &models.Participant{
			ID:        string(rune('a' + i)),
			Status:    models.StatusCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	res, err := NewStatsService(store).Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(res.RecentActivity) != 10 {
		t.Fatalf("expected activity capped at 10, got %d", len(res.RecentActivity))
	}
	for i := 1; i < len(res.RecentActivity); i++ {
		if res.RecentActivity[i].Timestamp.After(res.RecentActivity[i-1].Timestamp) {
			t.Fatal("recent activity not sorted newest first")
		}
	}
	// the newest of the 15 leads the feed
	if res.RecentActivity[0].ID != string(rune('a'+14)) {
		t.Fatalf("unexpected head of feed: %s", res.RecentActivity[0].ID)
	}
}

func TestStatsEmptyRoster(t *testing.T) {
	res, err := NewStatsService(&stubStatsStore{}).Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if res.Stats.Total != 0 {
		t.Fatalf("expected zero total, got %d", res.Stats.Total)
	}
	if len(res.RecentActivity) != 0 {
		t.Fatalf("expected empty activity, got %d entries", len(res.RecentActivity))
	}
}
