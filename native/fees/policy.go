package fees

import (
	"fmt"
	"math/big"
)

// Policy captures the protocol fee configuration. The percentage is fixed at
// deployment and applied uniformly to asset deposits and bids.
type Policy struct {
	Percent uint32
}

// NewPolicy validates the configured percentage and returns the policy.
// Valid percentages are 1 through 100 inclusive.
func NewPolicy(percent uint32) (Policy, error) {
	if percent == 0 || percent > 100 {
		return Policy{}, fmt.Errorf("fees: percent out of range: %d", percent)
	}
	return Policy{Percent: percent}, nil
}

// Result summarises the fee split computed for a single value movement.
type Result struct {
	Fee *big.Int
	Net *big.Int
}

// Apply deducts the policy percentage from the supplied gross amount and
// returns the fee and remaining net. The caller is responsible for crediting
// the fee to the pool. A nil or non-positive gross yields a zero split.
func (p Policy) Apply(gross *big.Int) Result {
	result := Result{Fee: big.NewInt(0), Net: big.NewInt(0)}
	if gross == nil || gross.Sign() <= 0 {
		return result
	}
	result.Net = new(big.Int).Set(gross)
	if p.Percent == 0 {
		return result
	}
	fee := new(big.Int).Mul(result.Net, big.NewInt(int64(p.Percent)))
	fee.Div(fee, big.NewInt(100))
	if fee.Sign() <= 0 {
		return result
	}
	if fee.Cmp(result.Net) >= 0 {
		result.Fee = new(big.Int).Set(result.Net)
		result.Net = big.NewInt(0)
		return result
	}
	result.Fee = fee
	result.Net = new(big.Int).Sub(result.Net, fee)
	return result
}
