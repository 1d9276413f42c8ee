package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestWeightChargeTiers(t *testing.T) {
	cases := []struct {
		weight string
		charge string
	}{
		{"0", "0"},
		{"0.4", "200"},
		{"1", "200"},
		{"1.01", "300"},
		{"3", "300"},
		{"3.5", "400"},
		{"5", "400"},
		{"5.5", "525"},
		{"7", "600"},
		{"10", "750"},
		{"10.5", "787.5"},
		{"12", "900"},
	}
	for _, tc := range cases {
		got := WeightCharge(d(tc.weight))
		require.True(t, got.Equal(d(tc.charge)), "weight %s: got %s want %s", tc.weight, got, tc.charge)
	}
}

func TestWeightChargeMonotone(t *testing.T) {
	prev := decimal.Zero
	step := d("0.25")
	for w := d("0.25"); w.LessThanOrEqual(d("20")); w = w.Add(step) {
		charge := WeightCharge(w)
		require.True(t, charge.GreaterThanOrEqual(prev), "charge decreased at %s: %s < %s", w, charge, prev)
		prev = charge
	}
}
