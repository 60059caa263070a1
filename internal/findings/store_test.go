package findings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	factory := NewFactory()
	record, err := factory.Create(validPartial())
	require.NoError(t, err)
	require.NoError(t, store.Save(record))

	loaded, err := store.Load(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, loaded.ID)
	assert.Equal(t, record.DedupHash, loaded.DedupHash)
}

func TestStoreLoadAllOrdered(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	factory := NewFactory()
	for i := 0; i < 5; i++ {
		record, err := factory.Create(validPartial())
		require.NoError(t, err)
		require.NoError(t, store.Save(record))
	}

	all, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, record := range all {
		assert.Equal(t, all[0].ID <= record.ID, true)
		if i > 0 {
			assert.Less(t, all[i-1].ID, record.ID)
		}
	}
}

func TestAnnotateTouchesOnlyMutableFields(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	factory := NewFactory()
	record, err := factory.Create(validPartial())
	require.NoError(t, err)
	require.NoError(t, store.Save(record))

	status := VerificationConfirmed
	fp := true
	require.NoError(t, store.Annotate(record.ID, Annotation{
		VerificationStatus: &status,
		IsFalsePositive:    &fp,
	}))

	loaded, err := store.Load(record.ID)
	require.NoError(t, err)
	assert.Equal(t, VerificationConfirmed, loaded.VerificationStatus)
	assert.True(t, loaded.IsFalsePositive)
	assert.Equal(t, ReviewPending, loaded.ReviewDecision, "untouched annotation field keeps default")
	assert.Equal(t, record.Title, loaded.Title)
	assert.Equal(t, record.DedupHash, loaded.DedupHash)
	assert.Equal(t, record.CreatedAt.Unix(), loaded.CreatedAt.Unix())
	assert.True(t, loaded.UpdatedAt.After(loaded.CreatedAt) || loaded.UpdatedAt.Equal(loaded.CreatedAt))
}

func TestAnnotateRejectsInvalidStatus(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	factory := NewFactory()
	record, err := factory.Create(validPartial())
	require.NoError(t, err)
	require.NoError(t, store.Save(record))

	bad := "definitely-not-a-status"
	err = store.Annotate(record.ID, Annotation{VerificationStatus: &bad})
	require.Error(t, err)
	_, ok := err.(*SchemaValidationError)
	assert.True(t, ok)
}
