package usage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/trident/core"
	"github.com/poiesic/trident/storage"
	"github.com/poiesic/trident/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingRepo fails every call after failAfter successful saves.
type failingRepo struct {
	saves     atomic.Int32
	failAfter int32
	loadErr   error
}

func (r *failingRepo) SaveUsage(ctx context.Context, record core.UsageRecord) error {
	if r.saves.Add(1) > r.failAfter {
		return errors.New("disk full")
	}
	return nil
}

func (r *failingRepo) LoadUsage(ctx context.Context) ([]core.UsageRecord, int, error) {
	return nil, 0, r.loadErr
}

func (r *failingRepo) DeleteUsage(ctx context.Context, name string) error { return nil }
func (r *failingRepo) Close() error                                      { return nil }

var _ storage.UsageRepository = (*failingRepo)(nil)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestTracker_MemoryOnly(t *testing.T) {
	tr, err := NewTracker()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, tr.Load(ctx))
	assert.Zero(t, tr.MaxCount())

	r, err := tr.Record(ctx, "web-01")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Count)

	_, err = tr.Record(ctx, "web-01")
	require.NoError(t, err)
	_, err = tr.Record(ctx, "db-01")
	require.NoError(t, err)

	got, ok := tr.Get("web-01")
	require.True(t, ok)
	assert.Equal(t, uint64(2), got.Count)
	assert.Equal(t, uint64(2), tr.MaxCount())
	assert.False(t, tr.Degraded())
}

func TestTracker_RejectsEmptyName(t *testing.T) {
	tr, err := NewTracker()
	require.NoError(t, err)

	_, err = tr.Record(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrEmptyName)
	assert.Zero(t, tr.View().Len())
}

func TestTracker_LastUsed(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	tr, err := NewTracker(WithClock(fixedClock(ts)))
	require.NoError(t, err)

	r, err := tr.Record(context.Background(), "bastion")
	require.NoError(t, err)
	assert.True(t, ts.Equal(r.LastUsed))
}

func TestTracker_PersistsAndReloads(t *testing.T) {
	repo, backend, err := badger.NewMemoryUsageRepository()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	tr, err := NewTracker(WithRepository(repo))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := tr.Record(ctx, "web-01")
		require.NoError(t, err)
	}
	_, err = tr.Record(ctx, "db-01")
	require.NoError(t, err)

	reloaded, err := NewTracker(WithRepository(repo))
	require.NoError(t, err)
	require.NoError(t, reloaded.Load(ctx))

	all := reloaded.All()
	require.Len(t, all, 2)
	assert.Equal(t, "web-01", all[0].Name)
	assert.Equal(t, uint64(3), all[0].Count)
	assert.Equal(t, "db-01", all[1].Name)
	assert.Equal(t, uint64(3), reloaded.MaxCount())
}

func TestTracker_WriteFailureDegrades(t *testing.T) {
	repo := &failingRepo{failAfter: 1}
	tr, err := NewTracker(WithRepository(repo), WithRetry(2, time.Millisecond))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = tr.Record(ctx, "web-01")
	require.NoError(t, err)

	r, err := tr.Record(ctx, "web-01")
	var perr *core.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "save", perr.Op)
	assert.Equal(t, uint64(2), r.Count, "in-memory update survives the failed write")
	assert.True(t, tr.Degraded())

	// No further writes once degraded.
	saves := repo.saves.Load()
	r, err = tr.Record(ctx, "web-01")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), r.Count)
	assert.Equal(t, saves, repo.saves.Load())
}

func TestTracker_CanceledWriteKeepsPersisting(t *testing.T) {
	repo, backend, err := badger.NewMemoryUsageRepository()
	require.NoError(t, err)
	defer backend.Close()
	tr, err := NewTracker(WithRepository(repo))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := tr.Record(ctx, "web-01")
	assert.ErrorIs(t, err, context.Canceled)
	var perr *core.PersistenceError
	assert.False(t, errors.As(err, &perr))
	assert.Equal(t, uint64(1), r.Count)
	assert.False(t, tr.Degraded(), "a canceled call is not a storage failure")

	_, err = tr.Record(context.Background(), "web-01")
	require.NoError(t, err)
	records, _, err := repo.LoadUsage(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(2), records[0].Count)
}

func TestTracker_Disable(t *testing.T) {
	repo := &failingRepo{failAfter: 100}
	tr, err := NewTracker(WithRepository(repo))
	require.NoError(t, err)

	err = tr.Disable("open", errors.New("directory locked"))
	var perr *core.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "open", perr.Op)
	assert.True(t, tr.Degraded())

	_, err = tr.Record(context.Background(), "web-01")
	require.NoError(t, err)
	assert.Zero(t, repo.saves.Load())
}

func TestTracker_LoadFailureLeavesEmptyHistory(t *testing.T) {
	repo := &failingRepo{failAfter: 100, loadErr: errors.New("corrupt manifest")}
	tr, err := NewTracker(WithRepository(repo))
	require.NoError(t, err)
	ctx := context.Background()

	err = tr.Load(ctx)
	var perr *core.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load", perr.Op)
	assert.Zero(t, tr.View().Len())

	_, err = tr.Record(ctx, "web-01")
	assert.NoError(t, err)
}

func TestTracker_Forget(t *testing.T) {
	repo, backend, err := badger.NewMemoryUsageRepository()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	tr, err := NewTracker(WithRepository(repo))
	require.NoError(t, err)
	_, err = tr.Record(ctx, "web-01")
	require.NoError(t, err)
	_, err = tr.Record(ctx, "web-01")
	require.NoError(t, err)
	_, err = tr.Record(ctx, "db-01")
	require.NoError(t, err)

	require.NoError(t, tr.Forget(ctx, "web-01"))
	_, ok := tr.Get("web-01")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), tr.MaxCount())
	assert.ErrorIs(t, tr.Forget(ctx, "web-01"), storage.ErrNotFound)

	records, _, err := repo.LoadUsage(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "db-01", records[0].Name)
}

func TestTracker_ViewIsStable(t *testing.T) {
	tr, err := NewTracker()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = tr.Record(ctx, "web-01")
	require.NoError(t, err)
	v := tr.View()

	_, err = tr.Record(ctx, "web-01")
	require.NoError(t, err)

	r, _ := v.Get("web-01")
	assert.Equal(t, uint64(1), r.Count, "an old view never changes")
	assert.Equal(t, uint64(1), v.MaxCount())
	assert.Greater(t, tr.View().Generation(), v.Generation())

	require.NoError(t, tr.Forget(ctx, "web-01"))
	assert.Greater(t, tr.View().Generation(), v.Generation()+1)
}

func TestTracker_ConcurrentRecord(t *testing.T) {
	repo, backend, err := badger.NewMemoryUsageRepository()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	tr, err := NewTracker(WithRepository(repo))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.Record(ctx, "web-01")
		}()
	}
	wg.Wait()

	r, _ := tr.Get("web-01")
	assert.Equal(t, uint64(50), r.Count)

	records, _, err := repo.LoadUsage(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(50), records[0].Count, "the last write carries the final count")
}
