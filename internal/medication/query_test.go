package medication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mediquereminder/medique-sub000/pkg/types"
)

func seedDoseEvents(t *testing.T, service *Service, events ...types.DoseEvent) {
	t.Helper()
	err := service.repository.MutateDoseEvents(func(existing []types.DoseEvent) ([]types.DoseEvent, error) {
		return append(existing, events...), nil
	})
	require.NoError(t, err)
}

func TestGetUpcomingSchedules_FiltersAndSorts(t *testing.T) {
	service := setupTestService()
	seedUser(t, service, "patient-1", types.RolePatient)

	seedDoseEvents(t, service,
		types.DoseEvent{ID: "later", PatientID: "patient-1", ScheduledTime: testNow.Add(2 * time.Hour)},
		types.DoseEvent{ID: "sooner", PatientID: "patient-1", ScheduledTime: testNow.Add(30 * time.Minute)},
		types.DoseEvent{ID: "past", PatientID: "patient-1", ScheduledTime: testNow.Add(-time.Hour)},
		types.DoseEvent{ID: "taken", PatientID: "patient-1", ScheduledTime: testNow.Add(time.Hour), Taken: true},
		types.DoseEvent{ID: "skipped", PatientID: "patient-1", ScheduledTime: testNow.Add(time.Hour), Skipped: true},
		types.DoseEvent{ID: "other", PatientID: "patient-2", ScheduledTime: testNow.Add(time.Hour)},
	)

	events, err := service.GetUpcomingSchedules("patient-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "sooner", events[0].ID)
	assert.Equal(t, "later", events[1].ID)
}

func TestGetUpcomingSchedules_ExcludesExactlyNow(t *testing.T) {
	service := setupTestService()
	seedUser(t, service, "patient-1", types.RolePatient)

	seedDoseEvents(t, service,
		types.DoseEvent{ID: "now", PatientID: "patient-1", ScheduledTime: testNow},
	)

	events, err := service.GetUpcomingSchedules("patient-1")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestGetTodaySchedules_DateMatchAllStates(t *testing.T) {
	service := setupTestService()
	seedUser(t, service, "patient-1", types.RolePatient)

	seedDoseEvents(t, service,
		types.DoseEvent{ID: "morning-taken", PatientID: "patient-1",
			ScheduledTime: testNow.Add(-2 * time.Hour), Taken: true},
		types.DoseEvent{ID: "evening", PatientID: "patient-1",
			ScheduledTime: testNow.Add(10 * time.Hour)},
		types.DoseEvent{ID: "yesterday", PatientID: "patient-1",
			ScheduledTime: testNow.AddDate(0, 0, -1)},
		types.DoseEvent{ID: "tomorrow", PatientID: "patient-1",
			ScheduledTime: testNow.AddDate(0, 0, 1)},
	)

	events, err := service.GetTodaySchedules("patient-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "morning-taken", events[0].ID)
	assert.Equal(t, "evening", events[1].ID)
}

func TestCaretakerSeesConnectedPatientsAndSelf(t *testing.T) {
	service := setupTestService()
	seedUser(t, service, "patient-1", types.RolePatient)
	seedUser(t, service, "patient-2", types.RolePatient)
	seedUser(t, service, "caretaker-1", types.RoleCaretaker)
	require.NoError(t, service.ConnectCaretaker("patient-1", "caretaker-1"))

	seedDoseEvents(t, service,
		types.DoseEvent{ID: "p1", PatientID: "patient-1", ScheduledTime: testNow.Add(time.Hour)},
		types.DoseEvent{ID: "p2", PatientID: "patient-2", ScheduledTime: testNow.Add(time.Hour)},
		types.DoseEvent{ID: "own", PatientID: "caretaker-1", ScheduledTime: testNow.Add(time.Hour)},
	)

	events, err := service.GetUpcomingSchedules("caretaker-1")
	require.NoError(t, err)
	require.Len(t, events, 2)

	ids := []string{events[0].ID, events[1].ID}
	assert.Contains(t, ids, "p1")
	assert.Contains(t, ids, "own")
}

func TestQueries_UnknownUserEmpty(t *testing.T) {
	service := setupTestService()

	seedDoseEvents(t, service,
		types.DoseEvent{ID: "p1", PatientID: "patient-1", ScheduledTime: testNow.Add(time.Hour)},
	)

	upcoming, err := service.GetUpcomingSchedules("ghost")
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	today, err := service.GetTodaySchedules("ghost")
	require.NoError(t, err)
	assert.Empty(t, today)
}
