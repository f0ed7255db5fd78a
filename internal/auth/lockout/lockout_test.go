package lockout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "clavis/pkg/domain-errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_LockoutEngagesAfterLimit(t *testing.T) {
	ctx := context.Background()
	svc := New(NewInMemoryStore(), discardLogger())

	for i := 0; i < DefaultMaxFailures; i++ {
		require.NoError(t, svc.Check(ctx, "jane@example.com", "10.0.0.1"))
		svc.RecordFailure(ctx, "jane@example.com", "10.0.0.1")
	}

	err := svc.Check(ctx, "jane@example.com", "10.0.0.1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))

	// Case variants of the same email share the budget.
	err = svc.Check(ctx, "JANE@example.com", "10.0.0.1")
	require.Error(t, err)

	// A different IP does not.
	require.NoError(t, svc.Check(ctx, "jane@example.com", "10.0.0.2"))
}

func TestService_ClearResetsBudget(t *testing.T) {
	ctx := context.Background()
	svc := New(NewInMemoryStore(), discardLogger())

	for i := 0; i < DefaultMaxFailures; i++ {
		svc.RecordFailure(ctx, "jane@example.com", "10.0.0.1")
	}
	require.Error(t, svc.Check(ctx, "jane@example.com", "10.0.0.1"))

	svc.Clear(ctx, "jane@example.com", "10.0.0.1")
	require.NoError(t, svc.Check(ctx, "jane@example.com", "10.0.0.1"))
}

func TestService_DegradesOpenOnStoreFailure(t *testing.T) {
	svc := New(failingStore{}, discardLogger())
	require.NoError(t, svc.Check(context.Background(), "jane@example.com", "10.0.0.1"))
}

func TestInMemoryStore_WindowExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		_, err := store.RecordFailure(ctx, "k")
		require.NoError(t, err)
	}
	count, err := store.Failures(ctx, "k")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	current = current.Add(DefaultWindow + time.Second)
	count, err = store.Failures(ctx, "k")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// A failure after expiry starts a fresh window at one.
	count, err = store.RecordFailure(ctx, "k")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

type failingStore struct{}

func (failingStore) RecordFailure(context.Context, string) (int64, error) {
	return 0, errors.New("backend down")
}

func (failingStore) Failures(context.Context, string) (int64, error) {
	return 0, errors.New("backend down")
}

func (failingStore) Clear(context.Context, string) error {
	return errors.New("backend down")
}
