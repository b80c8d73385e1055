package medication

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/Mediquereminder/medique-sub000/pkg/monitoring"
	"github.com/Mediquereminder/medique-sub000/pkg/types"
)

// CheckDueMedications scans the schedule for doses coming due within the
// configured window and notifies the patient and their caretakers. Each
// event is flagged notifiedDue on first match so later sweeps within the
// same window do not re-notify.
func (s *Service) CheckDueMedications() ([]types.DoseEvent, error) {
	now := s.now()
	window := s.config.Schedule.DueWindow()

	scanned := 0
	var due []types.DoseEvent
	err := s.repository.MutateDoseEvents(func(events []types.DoseEvent) ([]types.DoseEvent, error) {
		scanned = len(events)
		for i := range events {
			if events[i].Taken || events[i].Skipped || events[i].NotifiedDue {
				continue
			}
			until := events[i].ScheduledTime.Sub(now)
			if until < 0 || until > window {
				continue
			}
			events[i].NotifiedDue = true
			due = append(due, events[i])
		}
		return events, nil
	})
	if err != nil {
		return nil, fmt.Errorf("due sweep failed: %w", err)
	}

	for _, ev := range due {
		name, dosage := s.lookupMedication(ev.MedicationID)
		notification := types.Notification{
			Title:   "Medication Due Soon",
			Message: fmt.Sprintf("%s (%s) is due at %s", name, dosage, ev.ScheduledTime.Format("15:04")),
			Type:    types.NotificationDoseDue,
		}

		if err := s.AddNotification(ev.PatientID, notification); err != nil {
			s.logger.WithError(err).Errorf("Failed to notify patient %s of due dose %s", ev.PatientID, ev.ID)
		}
		if err := s.NotifyCaretakers(ev.PatientID, notification); err != nil {
			s.logger.WithError(err).Errorf("Failed to fan out due dose %s", ev.ID)
		}
	}

	monitoring.RecordSweep("due", len(due))
	s.logger.Sweep("due", scanned, len(due))
	return due, nil
}

// CheckMissedMedications scans for doses overdue within the configured
// lookback, notifies the patient and their caretakers, and marks the events
// skipped. Skipped events never qualify again, so the sweep is idempotent.
func (s *Service) CheckMissedMedications() ([]types.DoseEvent, error) {
	now := s.now()
	window := s.config.Schedule.MissedWindow()

	scanned := 0
	var missed []types.DoseEvent
	err := s.repository.MutateDoseEvents(func(events []types.DoseEvent) ([]types.DoseEvent, error) {
		scanned = len(events)
		for i := range events {
			if events[i].Taken || events[i].Skipped {
				continue
			}
			overdue := now.Sub(events[i].ScheduledTime)
			if overdue <= 0 || overdue > window {
				continue
			}
			events[i].Skipped = true
			missed = append(missed, events[i])
		}
		return events, nil
	})
	if err != nil {
		return nil, fmt.Errorf("missed sweep failed: %w", err)
	}

	for _, ev := range missed {
		name, dosage := s.lookupMedication(ev.MedicationID)
		notification := types.Notification{
			Title:   "Medication Missed",
			Message: fmt.Sprintf("%s (%s) scheduled for %s was missed", name, dosage, ev.ScheduledTime.Format("15:04")),
			Type:    types.NotificationDoseMissed,
		}

		if err := s.AddNotification(ev.PatientID, notification); err != nil {
			s.logger.WithError(err).Errorf("Failed to notify patient %s of missed dose %s", ev.PatientID, ev.ID)
		}
		if err := s.NotifyCaretakers(ev.PatientID, notification); err != nil {
			s.logger.WithError(err).Errorf("Failed to fan out missed dose %s", ev.ID)
		}
	}

	monitoring.RecordSweep("missed", len(missed))
	s.logger.Sweep("missed", scanned, len(missed))
	return missed, nil
}

// startSweepers runs one eager pass of both sweeps, then schedules them on
// their configured intervals.
func (s *Service) startSweepers() {
	if _, err := s.CheckDueMedications(); err != nil {
		s.logger.WithError(err).Error("Initial due sweep failed")
	}
	if _, err := s.CheckMissedMedications(); err != nil {
		s.logger.WithError(err).Error("Initial missed sweep failed")
	}

	c := cron.New()

	if _, err := c.AddFunc(fmt.Sprintf("@every %ds", s.config.Schedule.DueCheckSeconds), func() {
		if _, err := s.CheckDueMedications(); err != nil {
			s.logger.WithError(err).Error("Due sweep failed")
		}
	}); err != nil {
		s.logger.WithError(err).Error("Failed to schedule due sweep timer")
	}

	if _, err := c.AddFunc(fmt.Sprintf("@every %ds", s.config.Schedule.MissedCheckSeconds), func() {
		if _, err := s.CheckMissedMedications(); err != nil {
			s.logger.WithError(err).Error("Missed sweep failed")
		}
	}); err != nil {
		s.logger.WithError(err).Error("Failed to schedule missed sweep timer")
	}

	c.Start()
	s.cron = c
	s.logger.Infof("Sweep timers started (due every %ds, missed every %ds)",
		s.config.Schedule.DueCheckSeconds, s.config.Schedule.MissedCheckSeconds)
}
