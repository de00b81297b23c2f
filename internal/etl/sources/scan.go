package sources

import (
	"fmt"

	"github.com/shopspring/decimal"

	"taxisync/internal/domain"
)

// scanTargets returns destinations for rows.Scan in trip column order.
// Money columns go through decimalScanner because analytical drivers hand
// back their native decimal and float types rather than strings.
func scanTargets(t *domain.Trip) []any {
	return []any{
		&t.VendorID,
		&t.PickupAt,
		&t.DropoffAt,
		&t.PassengerCount,
		&t.TripDistance,
		&t.RatecodeID,
		&t.StoreAndFwdFlag,
		&t.PULocationID,
		&t.DOLocationID,
		&t.PaymentType,
		decimalScanner{&t.FareAmount},
		decimalScanner{&t.Extra},
		decimalScanner{&t.MTATax},
		decimalScanner{&t.TipAmount},
		decimalScanner{&t.TollsAmount},
		decimalScanner{&t.ImprovementSurcharge},
		decimalScanner{&t.TotalAmount},
		nullDecimalScanner{&t.CongestionSurcharge},
		nullDecimalScanner{&t.AirportFee},
	}
}

type decimalScanner struct{ d *decimal.Decimal }

func (s decimalScanner) Scan(src any) error {
	if src == nil {
		return fmt.Errorf("NULL in non-nullable decimal column")
	}
	v, err := toDecimal(src)
	if err != nil {
		return err
	}
	*s.d = v
	return nil
}

type nullDecimalScanner struct{ d *decimal.NullDecimal }

func (s nullDecimalScanner) Scan(src any) error {
	if src == nil {
		*s.d = decimal.NullDecimal{}
		return nil
	}
	v, err := toDecimal(src)
	if err != nil {
		return err
	}
	*s.d = decimal.NullDecimal{Decimal: v, Valid: true}
	return nil
}

func toDecimal(src any) (decimal.Decimal, error) {
	switch v := src.(type) {
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, fmt.Errorf("nil decimal")
		}
		return *v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case uint64:
		return decimal.NewFromUint64(v), nil
	case uint32:
		return decimal.NewFromInt(int64(v)), nil
	case string:
		return decimal.NewFromString(v)
	case []byte:
		return decimal.NewFromString(string(v))
	default:
		return decimal.Zero, fmt.Errorf("cannot scan %T into decimal", src)
	}
}
