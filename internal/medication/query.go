package medication

import (
	"fmt"
	"sort"

	"github.com/Mediquereminder/medique-sub000/pkg/types"
)

// GetUpcomingSchedules returns the caller's pending future dose events,
// soonest first. Read-only; safe to call on every poll tick.
func (s *Service) GetUpcomingSchedules(userID string) ([]types.DoseEvent, error) {
	scope, err := s.visiblePatients(userID)
	if err != nil {
		return nil, err
	}

	events, err := s.repository.DoseEvents()
	if err != nil {
		return nil, fmt.Errorf("failed to get dose events: %w", err)
	}

	now := s.now()
	out := []types.DoseEvent{}
	for _, ev := range events {
		if !scope[ev.PatientID] {
			continue
		}
		if ev.Taken || ev.Skipped || !ev.ScheduledTime.After(now) {
			continue
		}
		out = append(out, ev)
	}

	sortEventsAscending(out)
	return out, nil
}

// GetTodaySchedules returns every dose event scheduled on the current
// calendar date, regardless of taken/skipped state, soonest first. The match
// is on the local date string, mirroring how the UI renders day buckets.
func (s *Service) GetTodaySchedules(userID string) ([]types.DoseEvent, error) {
	scope, err := s.visiblePatients(userID)
	if err != nil {
		return nil, err
	}

	events, err := s.repository.DoseEvents()
	if err != nil {
		return nil, fmt.Errorf("failed to get dose events: %w", err)
	}

	today := s.now().Format("2006-01-02")
	out := []types.DoseEvent{}
	for _, ev := range events {
		if !scope[ev.PatientID] {
			continue
		}
		if ev.ScheduledTime.Format("2006-01-02") != today {
			continue
		}
		out = append(out, ev)
	}

	sortEventsAscending(out)
	return out, nil
}

// visiblePatients resolves which patients' events the caller may see.
// Patients see themselves. Caretakers see their connected patients plus
// themselves, so a caretaker who is also a patient keeps their own schedule.
// An unknown caller degrades to an empty scope.
func (s *Service) visiblePatients(userID string) (map[string]bool, error) {
	users, err := s.repository.Users()
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	scope := map[string]bool{}
	for _, user := range users {
		if user.ID != userID {
			continue
		}
		scope[user.ID] = true
		if user.Role == types.RoleCaretaker {
			for _, patientID := range user.ConnectedPatients {
				scope[patientID] = true
			}
		}
		break
	}

	return scope, nil
}

func sortEventsAscending(events []types.DoseEvent) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].ScheduledTime.Before(events[j].ScheduledTime)
	})
}

func sortHistoryDescending(history []types.HistoryEntry) {
	sort.Slice(history, func(i, j int) bool {
		return history[i].Date.After(history[j].Date)
	})
}
