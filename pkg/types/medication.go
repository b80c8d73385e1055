package types

import "time"

// FrequencyKind represents how often a medication is taken
type FrequencyKind string

const (
	FrequencyDaily      FrequencyKind = "daily"
	FrequencyTwiceDaily FrequencyKind = "twice-daily"
	FrequencyWeekly     FrequencyKind = "weekly"
)

// Medication represents a prescription entered by a patient or caretaker.
// Once dose events have been generated the definition is immutable except
// for Active and EndDate.
type Medication struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Dosage    string        `json:"dosage"`
	Frequency FrequencyKind `json:"frequencyKind"`
	TimeOfDay string        `json:"timeOfDay"` // "HH:MM", 24h clock
	StartDate time.Time     `json:"startDate"`
	EndDate   *time.Time    `json:"endDate,omitempty"`
	PatientID string        `json:"patientId"`
	CreatedBy string        `json:"createdBy"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"createdAt"`
}

// DoseEventSource identifies where a dose event came from
const DoseEventSourceSchedule = "schedule"

// DoseEvent represents one scheduled administration of a medication.
// Exactly one event exists per (medication, calendar date, slot); its ID is
// deterministic: medicationID-YYYY-MM-DD with a "-2" suffix for the second
// slot of a twice-daily medication.
type DoseEvent struct {
	ID            string     `json:"id"`
	MedicationID  string     `json:"medicationId"`
	PatientID     string     `json:"patientId"`
	ScheduledTime time.Time  `json:"scheduledTime"`
	Taken         bool       `json:"taken"`
	Skipped       bool       `json:"skipped"`
	TakenTime     *time.Time `json:"takenTime,omitempty"`
	NotifiedDue   bool       `json:"notifiedDue"`
	Source        string     `json:"source"`
}

// StockItem represents a patient's on-hand supply of a medication.
// MedicationID is the preferred join; Name+PatientID (case-insensitive)
// remains as a fallback for records created before the foreign key existed.
type StockItem struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patientId"`
	MedicationID string    `json:"medicationId,omitempty"`
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	Threshold    int       `json:"threshold"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// HistoryEntry is one row of the append-only adherence audit log
type HistoryEntry struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Medicine  string    `json:"medicine"`
	Quantity  string    `json:"quantity"`
	PatientID string    `json:"patientId"`
	Taken     bool      `json:"taken"`
}

// NotificationType categorises notifications for display and metrics
type NotificationType string

const (
	NotificationMedicationAdded NotificationType = "medication_added"
	NotificationDoseDue         NotificationType = "dose_due"
	NotificationDoseMissed      NotificationType = "dose_missed"
	NotificationDoseTaken       NotificationType = "dose_taken"
	NotificationStockLow        NotificationType = "stock_low"
)

// Notification is a message delivered to a single user. Lists are kept
// most-recent-first on the user record.
type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
}

// ScheduleWindow bounds a sweep or query over dose events
type ScheduleWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}
