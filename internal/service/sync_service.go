package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"taxisync/internal/config"
	"taxisync/internal/dbclient"
	"taxisync/internal/domain"
	"taxisync/internal/etl"
	"taxisync/internal/etl/sources"
	"taxisync/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// SyncService — one-shot copy from the analytical store into the
// relational store, plus the read-only status and check views
// ─────────────────────────────────────────────────────────────

// SecretResolver turns a password reference into its value.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// ConnectFunc opens a connector; dbclient.NewConnector in production.
type ConnectFunc func(conn *domain.DatabaseConnection, password string) (dbclient.Connector, error)

// SyncService wires configuration, secrets, connectors and the run ledger
// around etl.Copier.
type SyncService struct {
	cfg     *config.Config
	secrets SecretResolver
	runs    *storage.RunStore // nil when history is disabled
	emitter EventEmitter
	log     zerolog.Logger
	running runningGuard

	// Connect is swappable for tests.
	Connect ConnectFunc
}

// NewSyncService creates a SyncService. runs and emitter may be nil.
func NewSyncService(
	cfg *config.Config,
	secrets SecretResolver,
	runs *storage.RunStore,
	emitter EventEmitter,
	log zerolog.Logger,
) *SyncService {
	return &SyncService{
		cfg:     cfg,
		secrets: secrets,
		runs:    runs,
		emitter: emitter,
		log:     log,
		Connect: dbclient.NewConnector,
	}
}

// ── Run ────────────────────────────────────────────────────

// Run performs one sync. The returned result is never nil; on failure the
// error is an *etl.SyncError and result.Offset is the committed resume point.
// Both connections are released before Run returns.
func (s *SyncService) Run(ctx context.Context) (*etl.SyncResult, error) {
	runID := uuid.New().String()
	log := s.log.With().Str("run_id", runID).Logger()

	lockKey := s.cfg.Destination.String() + "/" + s.cfg.Destination.Table
	if !s.running.TryLock(lockKey) {
		err := etl.NewError(etl.KindBusy, "acquire", fmt.Errorf("a sync into %s is already running", s.cfg.Destination.Table))
		return s.failEarly(runID, err), err
	}
	defer s.running.Unlock(lockKey)

	if err := s.cfg.Validate(); err != nil {
		err = etl.NewError(etl.KindConfig, "validate", err)
		return s.record(log, s.failEarly(runID, err)), err
	}

	src, err := s.open(ctx, &s.cfg.Source.DatabaseConnection, s.cfg.Source.Password)
	if err != nil {
		return s.record(log, s.failEarly(runID, err)), err
	}
	defer src.Close()

	dst, err := s.open(ctx, &s.cfg.Destination.DatabaseConnection, s.cfg.Destination.Password)
	if err != nil {
		return s.record(log, s.failEarly(runID, err)), err
	}
	defer dst.Close()

	mapping := s.cfg.Mapping()
	copier := etl.NewCopier(s.cfg.BatchSize)
	copier.RunID = runID
	copier.Log = log
	copier.OnEvent = func(ev etl.Event) { s.emit(ctx, string(ev.Type), ev) }

	log.Info().
		Str("source", s.cfg.Source.String()).Str("source_table", s.cfg.Source.Table).
		Str("destination", s.cfg.Destination.String()).Str("table", s.cfg.Destination.Table).
		Int64("batch_size", s.cfg.BatchSize).
		Msg("sync started")

	result, runErr := copier.Run(ctx,
		sources.NewDatabase(src, s.cfg.Source.Table, mapping, s.cfg.Source.OrderBy, s.cfg.Source.Tiebreak...),
		etl.NewSQLWriter(dst, s.cfg.Destination.Table, mapping, s.cfg.Destination.InsertMode),
	)

	ev := log.Info()
	if runErr != nil {
		ev = log.Error().Err(runErr).Str("kind", string(etl.KindOf(runErr))).Int64("offset", result.Offset)
	}
	ev.Str("status", string(result.Status)).Int64("rows", result.RowsCopied).
		Int("batches", result.Batches).Dur("duration", result.Duration).Msg("sync finished")
	return s.record(log, result), runErr
}

// open resolves the password reference and connects. Failures are
// classified as connect errors.
func (s *SyncService) open(ctx context.Context, conn *domain.DatabaseConnection, passwordRef string) (dbclient.Connector, error) {
	password, err := s.secrets.Resolve(ctx, passwordRef)
	if err != nil {
		return nil, etl.NewError(etl.KindConnect, etl.OpResolveSecret, fmt.Errorf("%s password: %w", conn.Name, err))
	}
	c, err := s.Connect(conn, password)
	if err != nil {
		return nil, etl.NewError(etl.KindConnect, etl.OpConnect, fmt.Errorf("%s: %w", conn, err))
	}
	if err := c.TestConnection(ctx); err != nil {
		c.Close()
		return nil, etl.NewError(etl.KindConnect, etl.OpConnect, fmt.Errorf("%s: %w", conn, err))
	}
	return c, nil
}

func (s *SyncService) failEarly(runID string, err error) *etl.SyncResult {
	now := time.Now()
	return &etl.SyncResult{
		RunID:     runID,
		Status:    etl.StatusError,
		BatchSize: s.cfg.BatchSize,
		StartedAt: now,
		Error:     err.Error(),
	}
}

// record appends the run to the ledger. Ledger failures are logged, never
// returned: the ledger does not affect what was copied.
func (s *SyncService) record(log zerolog.Logger, result *etl.SyncResult) *etl.SyncResult {
	if s.runs == nil {
		return result
	}
	if err := s.runs.CreateRunLog(result.RunLog()); err != nil {
		log.Warn().Err(err).Msg("could not record run in history")
	}
	return result
}

func (s *SyncService) emit(ctx context.Context, event string, data any) {
	if s.emitter != nil {
		s.emitter.Emit(ctx, event, data)
	}
}

// ── Status ─────────────────────────────────────────────────

// StatusReport is a read-only view of how far the destination has come.
type StatusReport struct {
	SourceCount int64 `json:"sourceCount"`
	DestCount   int64 `json:"destCount"`
	Remaining   int64 `json:"remaining"`
	BatchSize   int64 `json:"batchSize"`
	NextBatch   int64 `json:"nextBatch"`
	Batches     int64 `json:"batches"` // batches left at the configured size
}

// Complete reports whether the destination holds every source record.
func (r *StatusReport) Complete() bool {
	return r.DestCount >= r.SourceCount
}

// Status counts both stores concurrently without writing anything.
func (s *SyncService) Status(ctx context.Context) (*StatusReport, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, etl.NewError(etl.KindConfig, "validate", err)
	}

	src, err := s.open(ctx, &s.cfg.Source.DatabaseConnection, s.cfg.Source.Password)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	dst, err := s.open(ctx, &s.cfg.Destination.DatabaseConnection, s.cfg.Destination.Password)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	report := &StatusReport{BatchSize: s.cfg.BatchSize}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := src.Count(gctx, s.cfg.Source.Table)
		if err != nil {
			return etl.NewError(etl.KindStore, etl.OpCountSource, err)
		}
		report.SourceCount = n
		return nil
	})
	g.Go(func() error {
		n, err := dst.Count(gctx, s.cfg.Destination.Table)
		if err != nil {
			return etl.NewError(etl.KindStore, etl.OpCountDestination, err)
		}
		report.DestCount = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Remaining = max(report.SourceCount-report.DestCount, 0)
	report.NextBatch = report.DestCount/report.BatchSize + 1
	report.Batches = (report.Remaining + report.BatchSize - 1) / report.BatchSize
	return report, nil
}

// ── Check ──────────────────────────────────────────────────

// StoreCheck is the preflight result for one side of the sync.
type StoreCheck struct {
	Name      string   `json:"name"`
	Target    string   `json:"target"`
	Table     string   `json:"table"`
	Reachable bool     `json:"reachable"`
	Missing   []string `json:"missing,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// OK reports whether the store is reachable and has every mapped column.
func (c *StoreCheck) OK() bool {
	return c.Reachable && c.Error == "" && len(c.Missing) == 0
}

// CheckReport holds the preflight result for both stores.
type CheckReport struct {
	Source      StoreCheck `json:"source"`
	Destination StoreCheck `json:"destination"`
}

// OK reports whether a sync could start.
func (r *CheckReport) OK() bool {
	return r.Source.OK() && r.Destination.OK()
}

// Check connects to both stores and verifies each table has the mapped
// columns. Problems are reported, not returned; the error is reserved for
// an invalid configuration.
func (s *SyncService) Check(ctx context.Context) (*CheckReport, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, etl.NewError(etl.KindConfig, "validate", err)
	}
	mapping := s.cfg.Mapping()

	report := &CheckReport{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.Source = s.checkStore(gctx, "source", &s.cfg.Source.DatabaseConnection,
			s.cfg.Source.Password, s.cfg.Source.Table, mapping.Source)
		return nil
	})
	g.Go(func() error {
		report.Destination = s.checkStore(gctx, "destination", &s.cfg.Destination.DatabaseConnection,
			s.cfg.Destination.Password, s.cfg.Destination.Table, mapping.Destination)
		return nil
	})
	_ = g.Wait()
	return report, nil
}

func (s *SyncService) checkStore(ctx context.Context, name string, conn *domain.DatabaseConnection, passwordRef, table string, columns []string) StoreCheck {
	check := StoreCheck{Name: name, Target: conn.String(), Table: table}

	c, err := s.open(ctx, conn, passwordRef)
	if err != nil {
		check.Error = errors.Unwrap(err).Error()
		return check
	}
	defer c.Close()
	check.Reachable = true

	info, err := c.Introspect(ctx, table)
	if err != nil {
		check.Error = err.Error()
		return check
	}
	check.Missing = etl.TripSchema(columns).Missing(info.ColumnNames())
	return check
}

// ── History ────────────────────────────────────────────────

// ErrHistoryDisabled is returned by History when no ledger is configured.
var ErrHistoryDisabled = errors.New("run history is disabled; set history.path in the config")

// History returns the most recent runs, newest first.
func (s *SyncService) History(limit int) ([]etl.SyncRunLog, error) {
	if s.runs == nil {
		return nil, ErrHistoryDisabled
	}
	return s.runs.ListRunLogs(limit)
}
