package etl_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxisync/internal/domain"
	"taxisync/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// In-memory stores
// ─────────────────────────────────────────────────────────────

// trips returns n trips whose VendorID is their 1-based position.
func trips(n int) []domain.Trip {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Trip, n)
	for i := range out {
		out[i] = domain.Trip{
			VendorID: int64(i + 1),
			PickupAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func ids(ts []domain.Trip) []int64 {
	out := make([]int64, len(ts))
	for i, t := range ts {
		out[i] = t.VendorID
	}
	return out
}

type memSource struct {
	rows     []domain.Trip
	count    int64 // reported count; -1 means len(rows)
	countErr error
	fetchErr error
	failAt   int64 // Fetch fails at this offset when fetchErr is set; -1 for any
	fetches  []int64
}

func newMemSource(n int) *memSource {
	return &memSource{rows: trips(n), count: -1, failAt: -1}
}

func (s *memSource) Count(context.Context) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	if s.count >= 0 {
		return s.count, nil
	}
	return int64(len(s.rows)), nil
}

func (s *memSource) Fetch(_ context.Context, offset, limit int64) ([]domain.Trip, error) {
	s.fetches = append(s.fetches, offset)
	if s.fetchErr != nil && (s.failAt < 0 || s.failAt == offset) {
		return nil, s.fetchErr
	}
	if offset >= int64(len(s.rows)) {
		return nil, nil
	}
	end := min(offset+limit, int64(len(s.rows)))
	return append([]domain.Trip(nil), s.rows[offset:end]...), nil
}

type memDestination struct {
	mu        sync.Mutex
	rows      []domain.Trip
	countErr  error
	insertErr error
	commitErr error
	failOnTx  int // 1-based transaction number that fails; 0 for every one
	txs       int
	rollbacks int
}

func (d *memDestination) Count(context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.countErr != nil {
		return 0, d.countErr
	}
	return int64(len(d.rows)), nil
}

func (d *memDestination) Begin(context.Context) (etl.Tx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txs++
	return &memTx{d: d, n: d.txs}, nil
}

func (d *memDestination) failing(n int) bool {
	return d.failOnTx == 0 || d.failOnTx == n
}

type memTx struct {
	d       *memDestination
	n       int
	pending []domain.Trip
	done    bool
}

func (t *memTx) Insert(_ context.Context, ts []domain.Trip) (int64, error) {
	t.pending = append(t.pending, ts...)
	if t.d.insertErr != nil && t.d.failing(t.n) {
		return 0, t.d.insertErr
	}
	return int64(len(ts)), nil
}

func (t *memTx) Commit() error {
	if t.d.commitErr != nil && t.d.failing(t.n) {
		return t.d.commitErr
	}
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.d.rows = append(t.d.rows, t.pending...)
	t.done = true
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.d.mu.Lock()
	t.d.rollbacks++
	t.d.mu.Unlock()
	t.pending = nil
	t.done = true
	return nil
}

// ─────────────────────────────────────────────────────────────
// Copier tests
// ─────────────────────────────────────────────────────────────

func TestCopier_FullCopy(t *testing.T) {
	src := newMemSource(100)
	dst := &memDestination{}

	res, err := etl.NewCopier(30).Run(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, etl.StatusComplete, res.Status)
	assert.True(t, res.Match())
	assert.Equal(t, int64(100), res.SourceCount)
	assert.Equal(t, int64(100), res.FinalDestCount)
	assert.Equal(t, int64(100), res.RowsCopied)
	assert.Equal(t, 4, res.Batches)
	assert.Equal(t, ids(src.rows), ids(dst.rows))
	assert.Equal(t, []int64{0, 30, 60, 90}, src.fetches)
}

func TestCopier_ResumesFromDestinationCount(t *testing.T) {
	src := newMemSource(100)
	dst := &memDestination{rows: trips(60)}

	res, err := etl.NewCopier(30).Run(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, etl.StatusComplete, res.Status)
	assert.Equal(t, int64(60), res.InitialDestCount)
	assert.Equal(t, int64(40), res.RowsCopied)
	assert.Equal(t, []int64{60, 90}, src.fetches)
	assert.Equal(t, ids(src.rows), ids(dst.rows), "no record duplicated or skipped")
}

func TestCopier_AlreadyComplete(t *testing.T) {
	src := newMemSource(50)
	dst := &memDestination{rows: trips(50)}

	res, err := etl.NewCopier(30).Run(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, etl.StatusComplete, res.Status)
	assert.Empty(t, src.fetches)
	assert.Zero(t, dst.txs)
}

func TestCopier_EmptySource(t *testing.T) {
	src := newMemSource(0)
	dst := &memDestination{}

	var events []etl.EventType
	c := etl.NewCopier(30)
	c.OnEvent = func(ev etl.Event) { events = append(events, ev.Type) }

	res, err := c.Run(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, etl.StatusEmptySource, res.Status)
	assert.Empty(t, src.fetches)
	assert.Zero(t, dst.txs)
	assert.Equal(t, []etl.EventType{etl.EventSourceCounted, etl.EventDone}, events)
}

func TestCopier_EmptyFetchStopsEarly(t *testing.T) {
	src := newMemSource(60)
	src.count = 100 // count says 100, only 60 are readable
	dst := &memDestination{}

	res, err := etl.NewCopier(30).Run(context.Background(), src, dst)
	require.NoError(t, err)

	assert.True(t, res.StoppedEarly)
	assert.Equal(t, etl.StatusMismatch, res.Status)
	assert.False(t, res.Match())
	assert.Equal(t, int64(60), res.FinalDestCount)
	assert.Equal(t, []int64{0, 30, 60}, src.fetches)
}

func TestCopier_InsertFailureLeavesBatchUncommitted(t *testing.T) {
	src := newMemSource(100)
	dst := &memDestination{insertErr: errors.New("constraint violated"), failOnTx: 3}

	res, err := etl.NewCopier(30).Run(context.Background(), src, dst)
	require.Error(t, err)

	var se *etl.SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, etl.KindStore, se.Kind)
	assert.Equal(t, etl.OpInsert, se.Op)
	assert.Equal(t, int64(60), se.Offset)
	assert.Equal(t, 3, se.Batch)

	assert.Equal(t, etl.StatusError, res.Status)
	assert.Equal(t, int64(60), res.Offset)
	assert.Len(t, dst.rows, 60, "failed batch must leave no rows")
	assert.Equal(t, 1, dst.rollbacks)

	// A rerun resumes exactly where the committed data ends.
	dst.insertErr = nil
	res, err = etl.NewCopier(30).Run(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, etl.StatusComplete, res.Status)
	assert.Equal(t, ids(src.rows), ids(dst.rows))
}

func TestCopier_CommitFailure(t *testing.T) {
	src := newMemSource(40)
	dst := &memDestination{commitErr: errors.New("connection reset"), failOnTx: 2}

	_, err := etl.NewCopier(30).Run(context.Background(), src, dst)
	require.Error(t, err)
	assert.True(t, etl.IsKind(err, etl.KindStore))

	var se *etl.SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, etl.OpCommit, se.Op)
	assert.Len(t, dst.rows, 30)
}

func TestCopier_FetchFailure(t *testing.T) {
	src := newMemSource(100)
	src.fetchErr = errors.New("read timeout")
	src.failAt = 30
	dst := &memDestination{}

	res, err := etl.NewCopier(30).Run(context.Background(), src, dst)
	require.Error(t, err)
	assert.ErrorContains(t, err, "read timeout")

	var se *etl.SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, etl.OpFetch, se.Op)
	assert.Equal(t, int64(30), res.Offset)
	assert.Len(t, dst.rows, 30)
}

func TestCopier_CountFailures(t *testing.T) {
	t.Run("source", func(t *testing.T) {
		src := newMemSource(10)
		src.countErr = errors.New("unreachable")
		dst := &memDestination{}

		_, err := etl.NewCopier(5).Run(context.Background(), src, dst)
		var se *etl.SyncError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, etl.OpCountSource, se.Op)
		assert.Zero(t, dst.txs)
	})

	t.Run("destination", func(t *testing.T) {
		src := newMemSource(10)
		dst := &memDestination{countErr: errors.New("no such table")}

		_, err := etl.NewCopier(5).Run(context.Background(), src, dst)
		var se *etl.SyncError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, etl.OpCountDestination, se.Op)
		assert.Empty(t, src.fetches)
	})
}

func TestCopier_Canceled(t *testing.T) {
	src := newMemSource(100)
	dst := &memDestination{}

	ctx, cancel := context.WithCancel(context.Background())
	c := etl.NewCopier(30)
	c.OnEvent = func(ev etl.Event) {
		if ev.Type == etl.EventBatchCommitted && ev.Batch == 2 {
			cancel()
		}
	}

	res, err := c.Run(ctx, src, dst)
	require.Error(t, err)
	assert.True(t, etl.IsKind(err, etl.KindCanceled))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(60), res.Offset)
	assert.Len(t, dst.rows, 60)
}

func TestCopier_InvalidBatchSize(t *testing.T) {
	c := etl.NewCopier(10)
	c.BatchSize = -1

	_, err := c.Run(context.Background(), newMemSource(5), &memDestination{})
	assert.True(t, etl.IsKind(err, etl.KindConfig))
}

func TestCopier_Events(t *testing.T) {
	src := newMemSource(70)
	dst := &memDestination{}

	var events []etl.Event
	c := etl.NewCopier(30)
	c.RunID = "run-1"
	c.OnEvent = func(ev etl.Event) { events = append(events, ev) }

	_, err := c.Run(context.Background(), src, dst)
	require.NoError(t, err)

	var started []etl.Event
	for _, ev := range events {
		assert.Equal(t, "run-1", ev.RunID)
		if ev.Type == etl.EventBatchStarted {
			started = append(started, ev)
		}
	}
	require.Len(t, started, 3)
	assert.Equal(t, int64(0), started[0].From)
	assert.Equal(t, int64(30), started[0].To)
	assert.Equal(t, int64(60), started[2].From)
	assert.Equal(t, int64(70), started[2].To, "last window is clamped to the source count")

	last := events[len(events)-1]
	assert.Equal(t, etl.EventDone, last.Type)
	require.NotNil(t, last.Result)
	assert.Equal(t, etl.StatusComplete, last.Result.Status)
}

func TestSyncResult_RunLog(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	res := &etl.SyncResult{
		RunID:          "abc",
		Status:         etl.StatusMismatch,
		SourceCount:    10,
		FinalDestCount: 8,
		RowsCopied:     8,
		Batches:        1,
		StartedAt:      start,
		Duration:       2 * time.Second,
	}
	log := res.RunLog()
	assert.Equal(t, "abc", log.ID)
	assert.Equal(t, start.Add(2*time.Second), log.FinishedAt)
	assert.Equal(t, int64(8), log.DestCount)
}
