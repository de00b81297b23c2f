package etl

import "time"

const percentMultiplier = 100

// Progress tracks how far a run has come. It is owned by the copy loop and
// not safe for concurrent use; callbacks receive Snapshots.
type Progress struct {
	// TotalItems is the number of records left to copy when the run started.
	TotalItems int64

	// ProcessedItems is the number of records committed so far in this run.
	ProcessedItems int64

	// ProcessedBatches is the number of batches committed so far in this run.
	ProcessedBatches int

	// StartTime is when copying started.
	StartTime time.Time

	// LastUpdateTime is when progress was last updated.
	LastUpdateTime time.Time

	now func() time.Time
}

// NewProgress creates a progress tracker for totalItems remaining records.
func NewProgress(totalItems int64) *Progress {
	return newProgressWithClock(totalItems, time.Now)
}

func newProgressWithClock(totalItems int64, now func() time.Time) *Progress {
	if totalItems < 0 {
		totalItems = 0
	}
	t := now()
	return &Progress{TotalItems: totalItems, StartTime: t, LastUpdateTime: t, now: now}
}

// AddProcessed records one committed batch of n records.
func (p *Progress) AddProcessed(n int) {
	p.ProcessedItems += int64(n)
	p.ProcessedBatches++
	p.LastUpdateTime = p.now()
}

// PercentComplete returns the completion percentage (0-100).
func (p *Progress) PercentComplete() float64 {
	if p.TotalItems == 0 {
		return percentMultiplier
	}
	pct := float64(p.ProcessedItems) / float64(p.TotalItems) * percentMultiplier
	if pct > percentMultiplier {
		return percentMultiplier
	}
	return pct
}

// ItemsPerSecond returns the copy rate in records per second.
func (p *Progress) ItemsPerSecond() float64 {
	elapsed := p.now().Sub(p.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(p.ProcessedItems) / elapsed
}

// EstimatedTimeRemaining extrapolates from the average time per record.
// Returns 0 until something has been processed.
func (p *Progress) EstimatedTimeRemaining() time.Duration {
	if p.ProcessedItems == 0 || p.ProcessedItems >= p.TotalItems {
		return 0
	}
	elapsed := p.now().Sub(p.StartTime)
	perItem := elapsed / time.Duration(p.ProcessedItems)
	return perItem * time.Duration(p.TotalItems-p.ProcessedItems)
}

// Snapshot returns an immutable copy of the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		TotalItems:       p.TotalItems,
		ProcessedItems:   p.ProcessedItems,
		ProcessedBatches: p.ProcessedBatches,
		PercentComplete:  p.PercentComplete(),
		ElapsedTime:      p.now().Sub(p.StartTime),
		ItemsPerSecond:   p.ItemsPerSecond(),
		Remaining:        p.EstimatedTimeRemaining(),
	}
}

// ProgressSnapshot is an immutable view of Progress.
type ProgressSnapshot struct {
	TotalItems       int64         `json:"totalItems"`
	ProcessedItems   int64         `json:"processedItems"`
	ProcessedBatches int           `json:"processedBatches"`
	PercentComplete  float64       `json:"percentComplete"`
	ElapsedTime      time.Duration `json:"elapsedTime"`
	ItemsPerSecond   float64       `json:"itemsPerSecond"`
	Remaining        time.Duration `json:"remaining"`
}
