package medication

import (
	"context"
	"encoding/json"

	"github.com/Mediquereminder/medique-sub000/pkg/interfaces"
	"github.com/Mediquereminder/medique-sub000/pkg/logger"
	"github.com/Mediquereminder/medique-sub000/pkg/types"
)

// Store keys for the adherence collections. Each key holds one whole
// JSON-encoded collection.
const (
	keyUsers       = "users"
	keyMedications = "medications"
	keySchedules   = "medicationSchedules"
	keyStock       = "medicationStock"
	keyHistory     = "medicationHistory"
)

// Repository implements the AdherenceRepository interface over a KVStore.
// Absent keys read as empty collections and malformed values degrade to
// empty rather than failing.
type Repository struct {
	store  interfaces.KVStore
	logger *logger.Logger
}

// NewRepository creates a new adherence repository
func NewRepository(store interfaces.KVStore, log *logger.Logger) interfaces.AdherenceRepository {
	return &Repository{
		store:  store,
		logger: log,
	}
}

func loadCollection[T any](r *Repository, key string) ([]T, error) {
	raw, err := r.store.Get(context.Background(), key)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []T{}, nil
	}

	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		r.logger.WithError(err).Errorf("Malformed %s collection, treating as empty", key)
		return []T{}, nil
	}
	return out, nil
}

func mutateCollection[T any](r *Repository, key string, fn func([]T) ([]T, error)) error {
	return r.store.Update(context.Background(), key, func(raw []byte) ([]byte, error) {
		var current []T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &current); err != nil {
				r.logger.WithError(err).Errorf("Malformed %s collection, replacing", key)
				current = nil
			}
		}
		if current == nil {
			current = []T{}
		}

		next, err := fn(current)
		if err != nil {
			return nil, err
		}

		return json.Marshal(next)
	})
}

// Users returns the full user collection
func (r *Repository) Users() ([]types.User, error) {
	return loadCollection[types.User](r, keyUsers)
}

// MutateUsers rewrites the user collection under the store's write boundary
func (r *Repository) MutateUsers(fn func([]types.User) ([]types.User, error)) error {
	return mutateCollection(r, keyUsers, fn)
}

// Medications returns the full medication collection
func (r *Repository) Medications() ([]types.Medication, error) {
	return loadCollection[types.Medication](r, keyMedications)
}

// MutateMedications rewrites the medication collection
func (r *Repository) MutateMedications(fn func([]types.Medication) ([]types.Medication, error)) error {
	return mutateCollection(r, keyMedications, fn)
}

// DoseEvents returns the full dose event collection
func (r *Repository) DoseEvents() ([]types.DoseEvent, error) {
	return loadCollection[types.DoseEvent](r, keySchedules)
}

// MutateDoseEvents rewrites the dose event collection
func (r *Repository) MutateDoseEvents(fn func([]types.DoseEvent) ([]types.DoseEvent, error)) error {
	return mutateCollection(r, keySchedules, fn)
}

// StockItems returns the full stock collection
func (r *Repository) StockItems() ([]types.StockItem, error) {
	return loadCollection[types.StockItem](r, keyStock)
}

// MutateStockItems rewrites the stock collection
func (r *Repository) MutateStockItems(fn func([]types.StockItem) ([]types.StockItem, error)) error {
	return mutateCollection(r, keyStock, fn)
}

// History returns the full adherence history collection
func (r *Repository) History() ([]types.HistoryEntry, error) {
	return loadCollection[types.HistoryEntry](r, keyHistory)
}

// MutateHistory rewrites the history collection
func (r *Repository) MutateHistory(fn func([]types.HistoryEntry) ([]types.HistoryEntry, error)) error {
	return mutateCollection(r, keyHistory, fn)
}
