package medication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mediquereminder/medique-sub000/pkg/types"
)

func TestBuildDoseEvents_DailyWithEndDate(t *testing.T) {
	med := dailyMedication("med-1", "patient-1")
	end := time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)
	med.EndDate = &end

	events := buildDoseEvents(med, testNow, 30)

	require.Len(t, events, 7)
	assert.Equal(t, "med-1-2026-03-10", events[0].ID)
	assert.Equal(t, "med-1-2026-03-16", events[6].ID)
	for _, ev := range events {
		assert.Equal(t, "med-1", ev.MedicationID)
		assert.Equal(t, "patient-1", ev.PatientID)
		assert.Equal(t, types.DoseEventSourceSchedule, ev.Source)
		assert.Equal(t, 8, ev.ScheduledTime.Hour())
		assert.Equal(t, 0, ev.ScheduledTime.Minute())
		assert.False(t, ev.Taken)
		assert.False(t, ev.Skipped)
	}
}

func TestBuildDoseEvents_DailyDefaultHorizon(t *testing.T) {
	med := dailyMedication("med-1", "patient-1")

	events := buildDoseEvents(med, testNow, 30)

	assert.Len(t, events, 30)
}

func TestBuildDoseEvents_TwiceDailyWrapsMidnight(t *testing.T) {
	med := dailyMedication("med-1", "patient-1")
	med.Frequency = types.FrequencyTwiceDaily
	med.TimeOfDay = "20:30"
	end := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	med.EndDate = &end

	events := buildDoseEvents(med, testNow, 30)

	require.Len(t, events, 6)

	first, second := events[0], events[1]
	assert.Equal(t, "med-1-2026-03-10", first.ID)
	assert.Equal(t, "med-1-2026-03-10-2", second.ID)
	assert.Equal(t, 20, first.ScheduledTime.Hour())
	assert.Equal(t, 30, first.ScheduledTime.Minute())

	// Second dose wraps to 08:30 on the same calendar date, not the next day
	assert.Equal(t, 8, second.ScheduledTime.Hour())
	assert.Equal(t, 30, second.ScheduledTime.Minute())
	assert.Equal(t, first.ScheduledTime.Day(), second.ScheduledTime.Day())
}

func TestBuildDoseEvents_WeeklyOnStartWeekday(t *testing.T) {
	med := dailyMedication("med-1", "patient-1")
	med.Frequency = types.FrequencyWeekly

	events := buildDoseEvents(med, testNow, 30)

	// Tuesdays within 30 days of a Tuesday start
	require.Len(t, events, 5)
	for _, ev := range events {
		assert.Equal(t, time.Tuesday, ev.ScheduledTime.Weekday())
	}
	assert.Equal(t, "med-1-2026-03-10", events[0].ID)
	assert.Equal(t, "med-1-2026-04-07", events[4].ID)
}

func TestBuildDoseEvents_StartDateTimeIgnored(t *testing.T) {
	med := dailyMedication("med-1", "patient-1")
	med.StartDate = time.Date(2026, 3, 10, 23, 45, 0, 0, time.UTC)
	end := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	med.EndDate = &end

	events := buildDoseEvents(med, testNow, 30)

	// Generation starts on the calendar date regardless of start time
	require.Len(t, events, 2)
	assert.Equal(t, 10, events[0].ScheduledTime.Day())
	assert.Equal(t, 8, events[0].ScheduledTime.Hour())
}

func TestParseTimeOfDay(t *testing.T) {
	hour, minute := parseTimeOfDay("14:35")
	assert.Equal(t, 14, hour)
	assert.Equal(t, 35, minute)

	// Malformed inputs degrade to midnight
	hour, minute = parseTimeOfDay("garbage")
	assert.Equal(t, 0, hour)
	assert.Equal(t, 0, minute)

	hour, minute = parseTimeOfDay("99:99")
	assert.Equal(t, 0, hour)
	assert.Equal(t, 0, minute)
}

func TestGenerateSchedules_PersistsAndCounts(t *testing.T) {
	service := setupTestService()

	med := dailyMedication("med-1", "patient-1")
	end := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	med.EndDate = &end

	count, err := service.generateSchedules(med)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	events, err := service.repository.DoseEvents()
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestGenerateSchedules_EndDateExclusive(t *testing.T) {
	service := setupTestService()

	med := dailyMedication("med-1", "patient-1")
	med.StartDate = time.Date(2026, 3, 8, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	med.EndDate = &end

	count, err := service.generateSchedules(med)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
