// Package money provides integer-cent arithmetic for charges and refunds.
// Staying in int64 cents keeps charge/refund round-trips exact; half-up
// rounding is applied at the two documented rounding points only: the charge
// computation and the proportional refund.
package money

// ChargeCents computes the charge for quantity units at rateCents per 100
// units: round(quantity/100 * rate, 2) expressed in cents.
func ChargeCents(quantity int, rateCents int64) int64 {
	if quantity <= 0 || rateCents <= 0 {
		return 0
	}
	num := int64(quantity) * rateCents
	return (num + 50) / 100
}

// ProportionalRefundCents computes round(charge * undelivered/quantity, 2)
// in cents.
func ProportionalRefundCents(chargeCents int64, undelivered, quantity int) int64 {
	if chargeCents <= 0 || undelivered <= 0 || quantity <= 0 {
		return 0
	}
	if undelivered >= quantity {
		return chargeCents
	}
	num := 2*chargeCents*int64(undelivered) + int64(quantity)
	return num / (2 * int64(quantity))
}

// RoundCents rounds a fractional cent amount half-up, floored at zero.
func RoundCents(raw float64) int64 {
	if raw <= 0 {
		return 0
	}
	return int64(raw + 0.5)
}
