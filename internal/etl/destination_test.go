package etl_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxisync/internal/dbclient"
	"taxisync/internal/domain"
	"taxisync/internal/etl"
)

const tripsDDL = `CREATE TABLE trips (
	vendorid INTEGER NOT NULL,
	tpep_pickup_datetime TIMESTAMP NOT NULL,
	tpep_dropoff_datetime TIMESTAMP NOT NULL,
	passenger_count INTEGER,
	trip_distance REAL NOT NULL,
	ratecodeid INTEGER,
	store_and_fwd_flag TEXT,
	pulocationid INTEGER NOT NULL,
	dolocationid INTEGER NOT NULL,
	payment_type INTEGER NOT NULL,
	fare_amount NUMERIC NOT NULL,
	extra NUMERIC NOT NULL,
	mta_tax NUMERIC NOT NULL,
	tip_amount NUMERIC NOT NULL,
	tolls_amount NUMERIC NOT NULL,
	improvement_surcharge NUMERIC NOT NULL,
	total_amount NUMERIC NOT NULL CHECK (total_amount >= 0),
	congestion_surcharge NUMERIC,
	airport_fee NUMERIC
)`

func openSQLite(t *testing.T) dbclient.Connector {
	t.Helper()
	conn, err := dbclient.NewConnector(&domain.DatabaseConnection{
		Driver: domain.DatabaseDriverSQLite,
		Host:   filepath.Join(t.TempDir(), "dest.db"),
	}, "")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.DB().Exec(tripsDDL)
	require.NoError(t, err)
	return conn
}

func pricedTrips(n int) []domain.Trip {
	ts := trips(n)
	for i := range ts {
		ts[i].DropoffAt = ts[i].PickupAt.Add(12 * time.Minute)
		ts[i].TripDistance = 1.5
		ts[i].PULocationID = 132
		ts[i].DOLocationID = 236
		ts[i].PaymentType = 1
		ts[i].FareAmount = decimal.RequireFromString("10.50")
		ts[i].TotalAmount = decimal.RequireFromString("14.30")
	}
	return ts
}

func TestSQLWriter_InsertAndCount(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	w := etl.NewSQLWriter(conn, "trips", etl.DefaultColumnMapping(), etl.InsertValues)

	tx, err := w.Begin(ctx)
	require.NoError(t, err)
	n, err := tx.Insert(ctx, pricedTrips(25))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(25), n)

	count, err := w.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25), count)

	// Rollback after commit is a no-op.
	assert.NoError(t, tx.Rollback())
}

func TestSQLWriter_ChunksLargeBatches(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	w := etl.NewSQLWriter(conn, "trips", etl.DefaultColumnMapping(), etl.InsertValues)

	per := conn.Dialect().RowsPerStatement(domain.TripFieldCount)
	rows := per*2 + 7
	assert.Equal(t, 3, w.StatementsFor(rows))

	tx, err := w.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Insert(ctx, pricedTrips(rows))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	count, err := w.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(rows), count)
}

func TestSQLWriter_StatementsFor(t *testing.T) {
	conn := openSQLite(t)

	w := etl.NewSQLWriter(conn, "trips", etl.DefaultColumnMapping(), "")
	assert.Equal(t, etl.InsertValues, w.Mode)
	assert.Equal(t, 0, w.StatementsFor(0))
	assert.Equal(t, 1, w.StatementsFor(1))

	w.Mode = etl.InsertCopy
	assert.Equal(t, 1, w.StatementsFor(50_000))
}

func TestSQLWriter_FailedBatchIsRolledBack(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	w := etl.NewSQLWriter(conn, "trips", etl.DefaultColumnMapping(), etl.InsertValues)

	src := &memSource{rows: pricedTrips(90), count: -1, failAt: -1}
	src.rows[75].TotalAmount = decimal.NewFromInt(-1) // violates the CHECK in batch 3

	res, err := etl.NewCopier(30).Run(ctx, src, w)
	require.Error(t, err)
	assert.Equal(t, int64(60), res.Offset)

	var se *etl.SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, etl.OpInsert, se.Op)
	assert.Equal(t, 3, se.Batch)

	count, err := w.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(60), count, "no partial batch may be visible")

	// Fix the row and resume.
	src.rows[75].TotalAmount = decimal.NewFromInt(3)
	res, err = etl.NewCopier(30).Run(ctx, src, w)
	require.NoError(t, err)
	assert.Equal(t, etl.StatusComplete, res.Status)
	assert.Equal(t, int64(30), res.RowsCopied)
}
