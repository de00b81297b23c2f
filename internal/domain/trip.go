package domain

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// TripColumns lists the trip table columns in the order they are read from the
// analytical store. Every Trip slice of values follows this order.
var TripColumns = []string{
	"VendorID",
	"tpep_pickup_datetime",
	"tpep_dropoff_datetime",
	"passenger_count",
	"trip_distance",
	"RatecodeID",
	"store_and_fwd_flag",
	"PULocationID",
	"DOLocationID",
	"payment_type",
	"fare_amount",
	"extra",
	"mta_tax",
	"tip_amount",
	"tolls_amount",
	"improvement_surcharge",
	"total_amount",
	"congestion_surcharge",
	"airport_fee",
}

// TripFieldCount is the fixed width of a trip row.
const TripFieldCount = 19

// DefaultOrderColumn is the primary sort key used for windowed reads.
const DefaultOrderColumn = "tpep_pickup_datetime"

// Trip is a single taxi trip. Field order matches TripColumns.
type Trip struct {
	VendorID             int64
	PickupAt             time.Time
	DropoffAt            time.Time
	PassengerCount       sql.NullInt64
	TripDistance         float64
	RatecodeID           sql.NullInt64
	StoreAndFwdFlag      sql.NullString
	PULocationID         int64
	DOLocationID         int64
	PaymentType          int64
	FareAmount           decimal.Decimal
	Extra                decimal.Decimal
	MTATax               decimal.Decimal
	TipAmount            decimal.Decimal
	TollsAmount          decimal.Decimal
	ImprovementSurcharge decimal.Decimal
	TotalAmount          decimal.Decimal
	CongestionSurcharge  decimal.NullDecimal
	AirportFee           decimal.NullDecimal
}

// Values returns the trip's fields as bind arguments, in column order.
func (t *Trip) Values() []any {
	return []any{
		t.VendorID,
		t.PickupAt,
		t.DropoffAt,
		t.PassengerCount,
		t.TripDistance,
		t.RatecodeID,
		t.StoreAndFwdFlag,
		t.PULocationID,
		t.DOLocationID,
		t.PaymentType,
		t.FareAmount,
		t.Extra,
		t.MTATax,
		t.TipAmount,
		t.TollsAmount,
		t.ImprovementSurcharge,
		t.TotalAmount,
		t.CongestionSurcharge,
		t.AirportFee,
	}
}
