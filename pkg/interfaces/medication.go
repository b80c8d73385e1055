package interfaces

import (
	"context"

	"github.com/Mediquereminder/medique-sub000/pkg/types"
)

// MedicationService defines the interface for the medication scheduling and
// notification engine
type MedicationService interface {
	// Medication management
	AddMedication(med *types.Medication, userID string) (*types.Medication, error)
	DeactivateMedication(medID, userID string) error
	GetMedications(patientID string) ([]types.Medication, error)

	// Schedule queries
	GetUpcomingSchedules(userID string) ([]types.DoseEvent, error)
	GetTodaySchedules(userID string) ([]types.DoseEvent, error)

	// Dose lifecycle
	MarkMedicationTaken(doseEventID string) (*types.DoseEvent, error)

	// Due/missed sweeps
	CheckDueMedications() ([]types.DoseEvent, error)
	CheckMissedMedications() ([]types.DoseEvent, error)

	// Notifications
	AddNotification(userID string, notification types.Notification) error
	NotifyCaretakers(patientID string, notification types.Notification) error
	GetNotifications(userID string) ([]types.Notification, error)
	MarkNotificationRead(userID, notificationID string) error

	// History
	AddHistoryEntry(entry types.HistoryEntry) error
	GetHistory(patientID string) ([]types.HistoryEntry, error)

	// Users and caretaker links
	CreateUser(user *types.User) (*types.User, error)
	GetUser(userID string) (*types.User, error)
	ConnectCaretaker(patientID, caretakerID string) error

	// Stock
	UpsertStockItem(item *types.StockItem) (*types.StockItem, error)
	GetStock(patientID string) ([]types.StockItem, error)

	// Service management
	Start(addr string) error
	Stop() error
}

// AdherenceRepository defines typed collection access for the adherence data.
// Every collection is read and written whole; Mutate* methods are the
// transaction boundary for read-modify-write cycles.
type AdherenceRepository interface {
	Users() ([]types.User, error)
	MutateUsers(fn func([]types.User) ([]types.User, error)) error

	Medications() ([]types.Medication, error)
	MutateMedications(fn func([]types.Medication) ([]types.Medication, error)) error

	DoseEvents() ([]types.DoseEvent, error)
	MutateDoseEvents(fn func([]types.DoseEvent) ([]types.DoseEvent, error)) error

	StockItems() ([]types.StockItem, error)
	MutateStockItems(fn func([]types.StockItem) ([]types.StockItem, error)) error

	History() ([]types.HistoryEntry, error)
	MutateHistory(fn func([]types.HistoryEntry) ([]types.HistoryEntry, error)) error
}

// KVStore defines the interface for the durable key-value mapping backing the
// repository. Values are JSON-serialized collections; a missing key reads as
// nil. Update runs fn under the store's per-key write boundary so concurrent
// read-modify-write cycles on the same key cannot interleave.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error
	Close() error
}
