package medication

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mediquereminder/medique-sub000/pkg/monitoring"
	"github.com/Mediquereminder/medique-sub000/pkg/types"
)

// generateSchedules expands a medication into dated dose events and appends
// them to the schedule collection. The window end is computed once, here:
// the explicit end date when present, otherwise now plus the configured
// horizon. A medication without an end date only ever gets this initial run.
// Callers must not invoke it twice for the same medication; event IDs are
// deterministic per (medication, date, slot) and no dedup check is done.
func (s *Service) generateSchedules(med *types.Medication) (int, error) {
	events := buildDoseEvents(med, s.now(), s.config.Schedule.HorizonDays)
	if len(events) == 0 {
		s.logger.Warnf("Medication %s produced no dose events", med.ID)
		return 0, nil
	}

	err := s.repository.MutateDoseEvents(func(existing []types.DoseEvent) ([]types.DoseEvent, error) {
		return append(existing, events...), nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to persist dose events: %w", err)
	}

	monitoring.RecordDoseEventsGenerated(len(events))
	return len(events), nil
}

// buildDoseEvents walks calendar days from the start date (inclusive) to the
// window end (exclusive) and emits events per the frequency rules.
func buildDoseEvents(med *types.Medication, now time.Time, horizonDays int) []types.DoseEvent {
	hour, minute := parseTimeOfDay(med.TimeOfDay)

	windowEnd := dateOnly(now).AddDate(0, 0, horizonDays)
	if med.EndDate != nil {
		windowEnd = *med.EndDate
	}

	startWeekday := med.StartDate.Weekday()

	var events []types.DoseEvent
	for day := dateOnly(med.StartDate); day.Before(windowEnd); day = day.AddDate(0, 0, 1) {
		switch med.Frequency {
		case types.FrequencyDaily:
			events = append(events, doseEventAt(med, day, hour, minute, 0))

		case types.FrequencyTwiceDaily:
			// Second dose is 12 hours later on the 24h clock, minute
			// preserved, same calendar date.
			events = append(events,
				doseEventAt(med, day, hour, minute, 0),
				doseEventAt(med, day, (hour+12)%24, minute, 2),
			)

		case types.FrequencyWeekly:
			if day.Weekday() == startWeekday {
				events = append(events, doseEventAt(med, day, hour, minute, 0))
			}
		}
	}

	return events
}

// doseEventAt builds one dose event with its deterministic ID. Slot 0 is the
// primary (or only) daily dose; slot 2 is the second dose of a twice-daily
// medication and gets a "-2" suffix.
func doseEventAt(med *types.Medication, day time.Time, hour, minute, slot int) types.DoseEvent {
	id := fmt.Sprintf("%s-%s", med.ID, day.Format("2006-01-02"))
	if slot > 0 {
		id = fmt.Sprintf("%s-%d", id, slot)
	}

	return types.DoseEvent{
		ID:           id,
		MedicationID: med.ID,
		PatientID:    med.PatientID,
		ScheduledTime: time.Date(
			day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()),
		Source: types.DoseEventSourceSchedule,
	}
}

// parseTimeOfDay splits an "HH:MM" string. Validation happens at medication
// creation; anything malformed here degrades to midnight.
func parseTimeOfDay(timeOfDay string) (hour, minute int) {
	parts := strings.SplitN(timeOfDay, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0
	}
	return hour, minute
}

// dateOnly truncates a timestamp to its calendar date
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
