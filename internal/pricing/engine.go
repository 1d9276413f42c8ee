// Package pricing computes invoice amounts: line totals, the weight-based
// delivery surcharge, tax and the grand total. All functions are pure and
// operate on decimal amounts; persistence and display formatting live
// elsewhere.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors for pricing input.
var (
	ErrNegativeQuantity = errors.New("pricing: quantity must not be negative")
	ErrNegativePrice    = errors.New("pricing: unit price must not be negative")
	ErrNegativeWeight   = errors.New("pricing: unit weight must not be negative")
	ErrNegativeTaxRate  = errors.New("pricing: tax rate must not be negative")
	ErrNegativeDiscount = errors.New("pricing: discount must not be negative")
)

var oneHundred = decimal.NewFromInt(100)

// Item is a single invoice line before pricing.
type Item struct {
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	UnitWeight decimal.Decimal // kilograms
	TaxRate    decimal.Decimal // percent
}

// PricedItem carries the computed line amounts.
type PricedItem struct {
	Item
	LineTotal  decimal.Decimal
	LineWeight decimal.Decimal
	TaxAmount  decimal.Decimal
}

// Quote aggregates a full invoice computation.
type Quote struct {
	Items          []PricedItem
	Subtotal       decimal.Decimal
	TotalWeight    decimal.Decimal
	WeightCharge   decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// PriceItem computes line total, line weight and tax for one item.
// Money amounts are rounded half-up to two decimal places.
func PriceItem(it Item) (PricedItem, error) {
	if it.Quantity.IsNegative() {
		return PricedItem{}, ErrNegativeQuantity
	}
	if it.UnitPrice.IsNegative() {
		return PricedItem{}, ErrNegativePrice
	}
	if it.UnitWeight.IsNegative() {
		return PricedItem{}, ErrNegativeWeight
	}
	if it.TaxRate.IsNegative() {
		return PricedItem{}, ErrNegativeTaxRate
	}
	lineTotal := it.Quantity.Mul(it.UnitPrice).Round(2)
	return PricedItem{
		Item:       it,
		LineTotal:  lineTotal,
		LineWeight: it.Quantity.Mul(it.UnitWeight),
		TaxAmount:  lineTotal.Mul(it.TaxRate).Div(oneHundred).Round(2),
	}, nil
}

// Compute prices every item and derives subtotal, weight surcharge, tax and
// total. The discount is capped at subtotal + weight charge + tax so the
// total never goes negative; an empty item set yields a zero quote with no
// weight surcharge.
func Compute(items []Item, discount decimal.Decimal) (Quote, error) {
	if discount.IsNegative() {
		return Quote{}, ErrNegativeDiscount
	}

	quote := Quote{
		Subtotal:    decimal.Zero,
		TotalWeight: decimal.Zero,
		TaxAmount:   decimal.Zero,
	}
	for i, it := range items {
		priced, err := PriceItem(it)
		if err != nil {
			return Quote{}, fmt.Errorf("item %d: %w", i+1, err)
		}
		quote.Items = append(quote.Items, priced)
		quote.Subtotal = quote.Subtotal.Add(priced.LineTotal)
		quote.TotalWeight = quote.TotalWeight.Add(priced.LineWeight)
		quote.TaxAmount = quote.TaxAmount.Add(priced.TaxAmount)
	}

	quote.WeightCharge = WeightCharge(quote.TotalWeight)

	gross := quote.Subtotal.Add(quote.WeightCharge).Add(quote.TaxAmount)
	quote.DiscountAmount = discount.Round(2)
	if quote.DiscountAmount.GreaterThan(gross) {
		quote.DiscountAmount = gross
	}
	quote.TotalAmount = gross.Sub(quote.DiscountAmount)
	return quote, nil
}
