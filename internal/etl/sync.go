package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ── Copier ─────────────────────────────────────────────────
// Orchestrates: source.Count → destination.Count → (fetch → insert → commit)*.
// The destination's row count is the only cursor: a rerun resumes from
// wherever the last committed batch left off.

// DefaultBatchSize is the number of trips moved per fetch/insert/commit cycle.
const DefaultBatchSize = 50_000

// Status is the terminal state of a run.
type Status string

const (
	StatusEmptySource Status = "empty_source" // nothing to copy; success
	StatusComplete    Status = "complete"     // destination count equals source count
	StatusMismatch    Status = "mismatch"     // finished, but counts differ
	StatusError       Status = "error"        // aborted; see the returned error
)

// SyncResult is the outcome of a run. It is returned on failure too, with
// Offset holding the last committed resume point.
type SyncResult struct {
	RunID            string        `json:"runId"`
	Status           Status        `json:"status"`
	BatchSize        int64         `json:"batchSize"`
	SourceCount      int64         `json:"sourceCount"`
	InitialDestCount int64         `json:"initialDestCount"`
	FinalDestCount   int64         `json:"finalDestCount"`
	RowsCopied       int64         `json:"rowsCopied"`
	Batches          int           `json:"batches"`
	Offset           int64         `json:"offset"`
	StoppedEarly     bool          `json:"stoppedEarly"`
	StartedAt        time.Time     `json:"startedAt"`
	Duration         time.Duration `json:"duration"`
	Error            string        `json:"error,omitempty"`
}

// Match reports whether the destination ended up with as many trips as the source.
func (r *SyncResult) Match() bool {
	return r.FinalDestCount == r.SourceCount
}

// SyncRunLog is a historical record of a run.
type SyncRunLog struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Status      Status    `json:"status"`
	SourceCount int64     `json:"sourceCount"`
	DestCount   int64     `json:"destCount"`
	RowsCopied  int64     `json:"rowsCopied"`
	Batches     int       `json:"batches"`
	BatchSize   int64     `json:"batchSize"`
	Offset      int64     `json:"offset"`
	Error       string    `json:"error,omitempty"`
}

// RunLog converts the result to its history record.
func (r *SyncResult) RunLog() *SyncRunLog {
	return &SyncRunLog{
		ID:          r.RunID,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.StartedAt.Add(r.Duration),
		Status:      r.Status,
		SourceCount: r.SourceCount,
		DestCount:   r.FinalDestCount,
		RowsCopied:  r.RowsCopied,
		Batches:     r.Batches,
		BatchSize:   r.BatchSize,
		Offset:      r.Offset,
		Error:       r.Error,
	}
}

// EventType names a point in the run a caller may want to report.
type EventType string

const (
	EventSourceCounted  EventType = "sync:source_counted"
	EventDestCounted    EventType = "sync:dest_counted"
	EventBatchStarted   EventType = "sync:batch_started"
	EventBatchCommitted EventType = "sync:batch_committed"
	EventEmptyFetch     EventType = "sync:empty_fetch"
	EventDone           EventType = "sync:done"
	EventFailed         EventType = "sync:failed"
)

// Event carries progress for one EventType. Fields not relevant to the type are zero.
type Event struct {
	Type        EventType        `json:"type"`
	RunID       string           `json:"runId"`
	SourceCount int64            `json:"sourceCount"`
	DestCount   int64            `json:"destCount"`
	Batch       int              `json:"batch"`
	From        int64            `json:"from"`
	To          int64            `json:"to"`
	Rows        int              `json:"rows"`
	Progress    ProgressSnapshot `json:"progress"`
	Result      *SyncResult      `json:"result,omitempty"`
}

// Copier runs the resumable batch copy.
type Copier struct {
	BatchSize int64
	RunID     string
	OnEvent   func(Event)
	Log       zerolog.Logger
}

// NewCopier creates a Copier; a non-positive batchSize selects DefaultBatchSize.
func NewCopier(batchSize int64) *Copier {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Copier{BatchSize: batchSize, Log: zerolog.Nop()}
}

// Run copies every source trip past the destination's current count.
// Batches are strictly sequential; each is committed before the next fetch.
func (c *Copier) Run(ctx context.Context, src Source, dst Destination) (*SyncResult, error) {
	result := &SyncResult{RunID: c.RunID, BatchSize: c.BatchSize, StartedAt: time.Now()}
	log := c.Log.With().Str("run_id", c.RunID).Logger()

	if c.BatchSize <= 0 {
		return c.fail(result, newSyncError(KindConfig, "validate", 0, 0,
			fmt.Errorf("batch size must be positive, got %d", c.BatchSize)))
	}

	// 1. Source count.
	sourceCount, err := src.Count(ctx)
	if err != nil {
		return c.fail(result, newSyncError(KindStore, OpCountSource, 0, 0, err))
	}
	result.SourceCount = sourceCount
	c.emit(Event{Type: EventSourceCounted, SourceCount: sourceCount})
	log.Info().Int64("source_count", sourceCount).Msg("counted source")

	if sourceCount == 0 {
		result.Status = StatusEmptySource
		log.Warn().Msg("source is empty, nothing to copy")
		return c.finish(result), nil
	}

	// 2. Destination count is the resume offset.
	destCount, err := dst.Count(ctx)
	if err != nil {
		return c.fail(result, newSyncError(KindStore, OpCountDestination, 0, 0, err))
	}
	result.InitialDestCount = destCount
	result.Offset = destCount
	c.emit(Event{Type: EventDestCounted, SourceCount: sourceCount, DestCount: destCount})
	log.Info().Int64("dest_count", destCount).Msg("resuming from destination count")

	// 3. Copy loop.
	progress := NewProgress(sourceCount - destCount)
	offset := destCount
	for offset < sourceCount {
		batch := &Batch{Index: int(offset/c.BatchSize) + 1, Offset: offset}

		if err := ctx.Err(); err != nil {
			return c.fail(result, newSyncError(KindCanceled, OpFetch, offset, batch.Index, err))
		}

		c.emit(Event{
			Type:        EventBatchStarted,
			SourceCount: sourceCount,
			Batch:       batch.Index,
			From:        offset,
			To:          min(offset+c.BatchSize, sourceCount),
		})

		batch.Trips, err = src.Fetch(ctx, offset, c.BatchSize)
		if err != nil {
			return c.fail(result, newSyncError(KindStore, OpFetch, offset, batch.Index, err))
		}
		if batch.Len() == 0 {
			result.StoppedEarly = true
			c.emit(Event{Type: EventEmptyFetch, SourceCount: sourceCount, Batch: batch.Index, From: offset})
			log.Warn().Int64("offset", offset).Msg("source returned no rows before reaching its count")
			break
		}

		if err := c.writeBatch(ctx, dst, batch, log); err != nil {
			return c.fail(result, err)
		}

		result.RowsCopied += int64(batch.Len())
		result.Batches++
		progress.AddProcessed(batch.Len())
		offset += c.BatchSize
		result.Offset = offset

		c.emit(Event{
			Type:        EventBatchCommitted,
			SourceCount: sourceCount,
			DestCount:   destCount + result.RowsCopied,
			Batch:       batch.Index,
			From:        batch.Offset,
			To:          batch.Offset + int64(batch.Len()),
			Rows:        batch.Len(),
			Progress:    progress.Snapshot(),
		})
		log.Debug().Int("batch", batch.Index).Int("rows", batch.Len()).Int64("offset", offset).Msg("batch committed")
	}

	// 4. Reconcile.
	final, err := dst.Count(ctx)
	if err != nil {
		return c.fail(result, newSyncError(KindStore, OpCountDestination, result.Offset, 0, err))
	}
	result.FinalDestCount = final
	if result.Match() {
		result.Status = StatusComplete
	} else {
		result.Status = StatusMismatch
		log.Warn().Int64("source_count", sourceCount).Int64("dest_count", final).Msg("counts differ after sync")
	}
	return c.finish(result), nil
}

// writeBatch inserts and commits one batch. Anything short of a successful
// commit rolls the transaction back.
func (c *Copier) writeBatch(ctx context.Context, dst Destination, b *Batch, log zerolog.Logger) *SyncError {
	tx, err := dst.Begin(ctx)
	if err != nil {
		return newSyncError(KindStore, OpBegin, b.Offset, b.Index, err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Int("batch", b.Index).Msg("rollback failed")
		}
	}()

	if _, err := tx.Insert(ctx, b.Trips); err != nil {
		return newSyncError(KindStore, OpInsert, b.Offset, b.Index, err)
	}
	if err := tx.Commit(); err != nil {
		return newSyncError(KindStore, OpCommit, b.Offset, b.Index, err)
	}
	committed = true
	return nil
}

func (c *Copier) finish(result *SyncResult) *SyncResult {
	result.Duration = time.Since(result.StartedAt)
	c.emit(Event{
		Type:        EventDone,
		SourceCount: result.SourceCount,
		DestCount:   result.FinalDestCount,
		Result:      result,
	})
	return result
}

func (c *Copier) fail(result *SyncResult, err *SyncError) (*SyncResult, error) {
	result.Status = StatusError
	result.Error = err.Error()
	result.Duration = time.Since(result.StartedAt)
	c.emit(Event{Type: EventFailed, SourceCount: result.SourceCount, Batch: err.Batch, From: err.Offset, Result: result})
	c.Log.Error().Err(err.Err).Str("run_id", c.RunID).Str("kind", string(err.Kind)).
		Str("op", err.Op).Int64("offset", err.Offset).Msg("sync failed")
	return result, err
}

func (c *Copier) emit(ev Event) {
	if c.OnEvent == nil {
		return
	}
	ev.RunID = c.RunID
	c.OnEvent(ev)
}
