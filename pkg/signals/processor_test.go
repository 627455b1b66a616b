package signals

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

// fakeSignalStore mimics the unique-constraint semantics of the real table:
// Insert is atomic insert-if-absent on the dedupe key and UpdateStatus is
// compare-and-swap on the current status. beforeUpdate, when set, runs ahead
// of the swap so tests can interleave a competing transition.
type fakeSignalStore struct {
	mu           sync.Mutex
	byID         map[string]*models.Signal
	byKey        map[string]*models.Signal
	inserted     int
	beforeUpdate func()
}

func newFakeSignalStore() *fakeSignalStore {
	return &fakeSignalStore{
		byID:  map[string]*models.Signal{},
		byKey: map[string]*models.Signal{},
	}
}

func (f *fakeSignalStore) GetByDedupeKey(_ context.Context, dedupeKey string) (*models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byKey[dedupeKey], nil
}

func (f *fakeSignalStore) GetByID(_ context.Context, id string) (*models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if signal, ok := f.byID[id]; ok {
		return signal, nil
	}
	return nil, httperror.NewHTTPError(http.StatusNotFound, "signal not found")
}

func (f *fakeSignalStore) Insert(_ context.Context, signal *models.Signal) (*models.Signal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byKey[signal.DedupeKey]; ok {
		return existing, false, nil
	}
	f.byID[signal.ID] = signal
	f.byKey[signal.DedupeKey] = signal
	f.inserted++
	return signal, true, nil
}

func (f *fakeSignalStore) UpdateStatus(_ context.Context, id string, from models.SignalStatus, to models.SignalStatus, processedAt *time.Time) (*models.Signal, error) {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	signal, ok := f.byID[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "signal not found")
	}
	if signal.Status != from {
		return nil, httperror.NewHTTPError(http.StatusConflict, "signal status changed concurrently")
	}
	signal.Status = to
	if processedAt != nil {
		signal.ProcessedAt = processedAt
	}
	return signal, nil
}

func testProcessor() (*Processor, *fakeSignalStore) {
	store := newFakeSignalStore()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewProcessor(store, nil, logger), store
}

func TestProcessor_CreateSignal(t *testing.T) {
	processor, store := testProcessor()
	ctx := context.Background()

	signal, err := processor.CreateSignal(ctx, models.CreateSignalRequest{
		Source:    "upload",
		DedupeKey: "sha256:abc123",
		Payload:   map[string]any{"filename": "invoice.pdf"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, signal.ID)
	assert.Equal(t, "upload", signal.Source)
	assert.Equal(t, models.SignalStatusNew, signal.Status)
	assert.Nil(t, signal.ProcessedAt)
	assert.Equal(t, "invoice.pdf", signal.Payload.Data["filename"])
	assert.Equal(t, 1, store.inserted)
}

func TestProcessor_CreateSignal_Idempotent(t *testing.T) {
	processor, store := testProcessor()
	ctx := context.Background()
	req := models.CreateSignalRequest{Source: "upload", DedupeKey: "sha256:abc123"}

	first, err := processor.CreateSignal(ctx, req)
	require.NoError(t, err)

	second, err := processor.CreateSignal(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.inserted)
}

func TestProcessor_CreateSignal_Concurrent(t *testing.T) {
	processor, store := testProcessor()
	req := models.CreateSignalRequest{Source: "upload", DedupeKey: "sha256:race"}

	const callers = 8
	results := make([]*models.Signal, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			signal, err := processor.CreateSignal(context.Background(), req)
			assert.NoError(t, err)
			results[i] = signal
		}(i)
	}
	wg.Wait()

	// every caller observes the same surviving record
	for i := 1; i < callers; i++ {
		assert.Equal(t, results[0].ID, results[i].ID)
	}
	assert.Equal(t, 1, store.inserted)
}

func TestProcessor_CreateSignal_Validation(t *testing.T) {
	processor, store := testProcessor()

	_, err := processor.CreateSignal(context.Background(), models.CreateSignalRequest{Source: "upload"})
	assert.Error(t, err)

	_, err = processor.CreateSignal(context.Background(), models.CreateSignalRequest{DedupeKey: "k"})
	assert.Error(t, err)

	assert.Equal(t, 0, store.inserted)
}

func TestProcessor_UpdateStatus(t *testing.T) {
	processor, _ := testProcessor()
	ctx := context.Background()

	signal, err := processor.CreateSignal(ctx, models.CreateSignalRequest{Source: "upload", DedupeKey: "k1"})
	require.NoError(t, err)

	t.Run("forward transition", func(t *testing.T) {
		updated, err := processor.UpdateStatus(ctx, signal.ID, models.SignalStatusProcessing, nil)
		require.NoError(t, err)
		assert.Equal(t, models.SignalStatusProcessing, updated.Status)
		assert.Nil(t, updated.ProcessedAt)
	})

	t.Run("terminal transition stamps processed_at", func(t *testing.T) {
		updated, err := processor.UpdateStatus(ctx, signal.ID, models.SignalStatusAttached, nil)
		require.NoError(t, err)
		assert.Equal(t, models.SignalStatusAttached, updated.Status)
		require.NotNil(t, updated.ProcessedAt)
	})

	t.Run("backward transition rejected", func(t *testing.T) {
		_, err := processor.UpdateStatus(ctx, signal.ID, models.SignalStatusNew, nil)
		assert.Error(t, err)
	})

	t.Run("terminal states do not move sideways", func(t *testing.T) {
		_, err := processor.UpdateStatus(ctx, signal.ID, models.SignalStatusError, nil)
		assert.Error(t, err)
	})
}

func TestProcessor_UpdateStatus_ConcurrentTransition(t *testing.T) {
	processor, store := testProcessor()
	ctx := context.Background()

	signal, err := processor.CreateSignal(ctx, models.CreateSignalRequest{Source: "upload", DedupeKey: "k-race"})
	require.NoError(t, err)

	// a competing caller attaches the signal between this caller's read and
	// its swap; the stale transition must fail instead of rewinding the status
	store.beforeUpdate = func() {
		store.beforeUpdate = nil
		_, err := processor.UpdateStatus(ctx, signal.ID, models.SignalStatusAttached, nil)
		assert.NoError(t, err)
	}

	_, err = processor.UpdateStatus(ctx, signal.ID, models.SignalStatusProcessing, nil)
	assert.Error(t, err)

	current, err := store.GetByID(ctx, signal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SignalStatusAttached, current.Status)
	assert.NotNil(t, current.ProcessedAt)
}

func TestProcessor_UpdateStatus_Errors(t *testing.T) {
	processor, _ := testProcessor()
	ctx := context.Background()

	t.Run("unknown status", func(t *testing.T) {
		_, err := processor.UpdateStatus(ctx, "any", "exploded", nil)
		assert.Error(t, err)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := processor.UpdateStatus(ctx, "missing", models.SignalStatusProcessing, nil)
		assert.Error(t, err)
	})
}

func TestSignalStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to models.SignalStatus
		allowed  bool
	}{
		{models.SignalStatusNew, models.SignalStatusProcessing, true},
		{models.SignalStatusNew, models.SignalStatusAttached, true},
		{models.SignalStatusNew, models.SignalStatusError, true},
		{models.SignalStatusProcessing, models.SignalStatusAttached, true},
		{models.SignalStatusProcessing, models.SignalStatusError, true},
		{models.SignalStatusProcessing, models.SignalStatusNew, false},
		{models.SignalStatusAttached, models.SignalStatusError, false},
		{models.SignalStatusError, models.SignalStatusAttached, false},
		{models.SignalStatusAttached, models.SignalStatusAttached, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}
