package services

import (
	"sort"

	"github.com/mentislab/mentis/internal/models"
)

// StatsStore exposes the participant roster for dashboard aggregation.
type StatsStore interface {
	ListParticipants() ([]*models.Participant, error)
}

// recentActivityLimit caps the dashboard feed.
const recentActivityLimit = 10

// StatsService aggregates participant counts and recent activity for the
// admin dashboard.
type StatsService struct {
	store StatsStore
}

func NewStatsService(store StatsStore) *StatsService {
	return &StatsService{store: store}
}

// StatsResult is the payload of the admin "stats" action.
type StatsResult struct {
	Stats          models.Stats           `json:"stats"`
	RecentActivity []models.ActivityEntry `json:"recentActivity"`
}

func (s *StatsService) Stats() (*StatsResult, error) {
	ps, err := s.store.ListParticipants()
	if err != nil {
		return nil, err
	}
	var res StatsResult
	res.Stats.Total = len(ps)
	for _, p := range ps {
		switch p.Status {
		case models.StatusInProgress:
			res.Stats.InProgress++
		case models.StatusCompleted:
			res.Stats.Completed++
		case models.StatusDeclined:
			res.Stats.Declined++
		case models.StatusExpired:
			res.Stats.Expired++
		case models.StatusAbandoned:
			res.Stats.Abandoned++
		}
	}

	sorted := append([]*models.Participant(nil), ps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartedAt.After(sorted[j].StartedAt) })
	if len(sorted) > recentActivityLimit {
		sorted = sorted[:recentActivityLimit]
	}
	res.RecentActivity = make([]models.ActivityEntry, 0, len(sorted))
	for _, p := range sorted {
		res.RecentActivity = append(res.RecentActivity, models.ActivityEntry{
			ID:        p.ID,
			Status:    p.Status,
			Timestamp: p.StartedAt,
		})
	}
	return &res, nil
}
