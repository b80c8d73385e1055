package medication

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mediquereminder/medique-sub000/pkg/logger"
	"github.com/Mediquereminder/medique-sub000/pkg/store"
	"github.com/Mediquereminder/medique-sub000/pkg/types"
)

func setupTestRepository() (*Repository, *store.Memory) {
	log := logger.New("error")
	kv := store.NewMemory(log)
	return &Repository{store: kv, logger: log}, kv
}

func TestRepository_AbsentCollectionsReadEmpty(t *testing.T) {
	repo, _ := setupTestRepository()

	users, err := repo.Users()
	require.NoError(t, err)
	assert.Empty(t, users)

	events, err := repo.DoseEvents()
	require.NoError(t, err)
	assert.Empty(t, events)

	history, err := repo.History()
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRepository_MalformedCollectionReadsEmpty(t *testing.T) {
	repo, kv := setupTestRepository()

	require.NoError(t, kv.Put(context.Background(), keyUsers, []byte("not json")))

	users, err := repo.Users()
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRepository_MutateRoundTrip(t *testing.T) {
	repo, _ := setupTestRepository()

	err := repo.MutateMedications(func(meds []types.Medication) ([]types.Medication, error) {
		return append(meds, types.Medication{ID: "med-1", Name: "Aspirin"}), nil
	})
	require.NoError(t, err)

	meds, err := repo.Medications()
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.Equal(t, "med-1", meds[0].ID)
	assert.Equal(t, "Aspirin", meds[0].Name)
}

func TestRepository_MutateErrorDiscardsWrite(t *testing.T) {
	repo, _ := setupTestRepository()

	require.NoError(t, repo.MutateUsers(func(users []types.User) ([]types.User, error) {
		return append(users, types.User{ID: "u1"}), nil
	}))

	boom := errors.New("boom")
	err := repo.MutateUsers(func(users []types.User) ([]types.User, error) {
		users[0].Name = "changed"
		return users, boom
	})
	assert.ErrorIs(t, err, boom)

	users, err := repo.Users()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].Name)
}

func TestRepository_MutateReplacesMalformedValue(t *testing.T) {
	repo, kv := setupTestRepository()

	require.NoError(t, kv.Put(context.Background(), keyStock, []byte("{broken")))

	err := repo.MutateStockItems(func(items []types.StockItem) ([]types.StockItem, error) {
		assert.Empty(t, items)
		return append(items, types.StockItem{ID: "s1", Name: "Aspirin"}), nil
	})
	require.NoError(t, err)

	items, err := repo.StockItems()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "s1", items[0].ID)
}
