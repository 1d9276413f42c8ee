package pricing

import "github.com/shopspring/decimal"

// Weight surcharge tier boundaries (kilograms) and base charges.
var (
	tierOneKg  = decimal.NewFromInt(1)
	tierFiveKg = decimal.NewFromInt(5)
	tierTenKg  = decimal.NewFromInt(10)

	chargeTier1 = decimal.NewFromInt(200)
	chargeTier2 = decimal.NewFromInt(300)
	chargeTier3 = decimal.NewFromInt(400)
	chargeTier4 = decimal.NewFromInt(500)
	chargeTier5 = decimal.NewFromInt(750)

	ratePerKgTier4 = decimal.NewFromInt(50)
	ratePerKgTier5 = decimal.NewFromInt(75)

	tierThreeKg = decimal.NewFromInt(3)
)

// WeightCharge returns the delivery surcharge for a total invoice weight.
// The function is a non-decreasing step function of weight. Zero weight
// (an invoice with no items) carries no surcharge.
func WeightCharge(weightKg decimal.Decimal) decimal.Decimal {
	switch {
	case weightKg.LessThanOrEqual(decimal.Zero):
		return decimal.Zero
	case weightKg.LessThanOrEqual(tierOneKg):
		return chargeTier1
	case weightKg.LessThanOrEqual(tierThreeKg):
		return chargeTier2
	case weightKg.LessThanOrEqual(tierFiveKg):
		return chargeTier3
	case weightKg.LessThanOrEqual(tierTenKg):
		return chargeTier4.Add(weightKg.Sub(tierFiveKg).Mul(ratePerKgTier4)).Round(2)
	default:
		return chargeTier5.Add(weightKg.Sub(tierTenKg).Mul(ratePerKgTier5)).Round(2)
	}
}
