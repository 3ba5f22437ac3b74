package domain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
)

// Amount is a price in minor units (cents). It maps to NUMERIC(12,2) and to a
// JSON number with two decimals, so prices never pass through a float.
type Amount int64

const amountScale = 2

var errInexactAmount = errors.New("amount has more than two decimal places")

func ParseAmount(s string) (Amount, error) {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	var a Amount
	if err := a.ScanNumeric(n); err != nil {
		return 0, err
	}
	return a, nil
}

// MustParseAmount panics on malformed input. Use it for constants.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *Amount) ScanNumeric(n pgtype.Numeric) error {
	if !n.Valid {
		return errors.New("cannot scan NULL into Amount")
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return errors.New("amount must be a finite number")
	}

	v := new(big.Int).Set(n.Int)
	shift := int64(n.Exp) + amountScale
	if shift >= 0 {
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(shift), nil))
	} else {
		var rem big.Int
		v.QuoRem(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(-shift), nil), &rem)
		if rem.Sign() != 0 {
			return errInexactAmount
		}
	}
	if !v.IsInt64() {
		return errors.New("amount out of range")
	}

	*a = Amount(v.Int64())
	return nil
}

func (a Amount) NumericValue() (pgtype.Numeric, error) {
	return pgtype.Numeric{Int: big.NewInt(int64(a)), Exp: -amountScale, Valid: true}, nil
}

func (a Amount) String() string {
	n, _ := a.NumericValue()
	b, _ := n.MarshalJSON()
	return string(b)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	n, _ := a.NumericValue()
	return n.MarshalJSON()
}

func (a *Amount) UnmarshalJSON(src []byte) error {
	var n pgtype.Numeric
	if err := n.UnmarshalJSON(src); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if !n.Valid {
		return errors.New("amount is required")
	}
	return a.ScanNumeric(n)
}

type Money struct {
	Amount   Amount `json:"amount"`
	Currency string `json:"currency"`
}
