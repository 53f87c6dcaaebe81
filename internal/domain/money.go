package domain

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// clp formats grouped integers the way Chilean receipts print them.
var clp = message.NewPrinter(language.MustParse("es-CL"))

// DiscountAmount computes the amount a discount removes from the subtotal.
// Percentage discounts take value% of the subtotal, fixed and coupon discounts
// are capped at the subtotal. A nil discount or non-positive subtotal yields 0.
func DiscountAmount(subtotal int64, discount *Discount) int64 {
	if discount == nil || subtotal <= 0 {
		return 0
	}
	switch discount.Type {
	case DiscountPercentage:
		if discount.Value <= 0 {
			return 0
		}
		value := discount.Value
		if value > 100 {
			value = 100
		}
		return int64(math.Round(float64(subtotal) * value / 100))
	case DiscountFixed, DiscountCoupon:
		amount := int64(math.Round(discount.Value))
		if amount <= 0 {
			return 0
		}
		if amount > subtotal {
			return subtotal
		}
		return amount
	default:
		return 0
	}
}

// ComputeTotals derives the full monetary breakdown for a subtotal with an
// optional discount and tax. Tax applies to the discounted amount. The total
// never goes negative.
func ComputeTotals(subtotal int64, discount *Discount, tax *Tax) Totals {
	if subtotal < 0 {
		subtotal = 0
	}
	discountAmount := DiscountAmount(subtotal, discount)
	afterDiscount := subtotal - discountAmount
	if afterDiscount < 0 {
		afterDiscount = 0
	}

	var taxAmount int64
	if tax != nil && tax.Rate > 0 {
		taxAmount = int64(math.Round(float64(afterDiscount) * tax.Rate / 100))
	}

	total := afterDiscount + taxAmount
	if total < 0 {
		total = 0
	}

	return Totals{
		Subtotal: subtotal,
		Discount: discountAmount,
		Tax:      taxAmount,
		Total:    total,
	}
}

// Change returns the cash change owed for the tendered amount, floored at 0.
func Change(total, tendered int64) int64 {
	if tendered <= total {
		return 0
	}
	return tendered - total
}

// FormatCLP renders an amount as a grouped Chilean peso string, e.g. "$12.345".
// CLP has no minor unit, so no fractional digits are printed.
func FormatCLP(amount int64) string {
	return clp.Sprintf("$%v", number.Decimal(amount))
}
