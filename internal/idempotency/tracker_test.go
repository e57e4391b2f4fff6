package idempotency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) LoadFingerprints(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) SaveFingerprint(ctx context.Context, fingerprint string) error {
	args := m.Called(ctx, fingerprint)
	return args.Error(0)
}

func TestTracker_MarkAndSeen(t *testing.T) {
	tr := NewTracker(nil)
	assert.False(t, tr.Seen("sig-1"))

	tr.MarkSeen(context.Background(), "sig-1")
	assert.True(t, tr.Seen("sig-1"))
	assert.False(t, tr.Seen("sig-2"))
	assert.Equal(t, 1, tr.Len())

	// Marking twice is a no-op.
	tr.MarkSeen(context.Background(), "sig-1")
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_RestoreFromStore(t *testing.T) {
	store := new(MockStore)
	store.On("LoadFingerprints", mock.Anything).Return([]string{"a", "b"}, nil)

	tr := NewTracker(store)
	require.NoError(t, tr.Restore(context.Background()))
	assert.True(t, tr.Seen("a"))
	assert.True(t, tr.Seen("b"))
	assert.Equal(t, 2, tr.Len())
}

func TestTracker_RestoreError(t *testing.T) {
	store := new(MockStore)
	store.On("LoadFingerprints", mock.Anything).Return(nil, errors.New("db locked"))

	tr := NewTracker(store)
	assert.Error(t, tr.Restore(context.Background()))
}

func TestTracker_MarkSeenSwallowsStoreFailure(t *testing.T) {
	store := new(MockStore)
	store.On("SaveFingerprint", mock.Anything, "sig-1").Return(errors.New("disk full"))

	tr := NewTracker(store)
	tr.MarkSeen(context.Background(), "sig-1")

	// In-memory set stays authoritative even when persistence fails.
	assert.True(t, tr.Seen("sig-1"))
	store.AssertExpectations(t)
}
