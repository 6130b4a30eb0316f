package mathutil

import "math"

// Round rounds a value val starting at roundOn, keeping places decimals.
//
//	Round(123.555555, .5, 3) -> 123.556
//	Round(123.558, .5, 2) -> 123.56
//	Round(123.00001, 0, 0) -> 124
func Round(val float64, roundOn float64, places int) float64 {
	var round float64
	pow := math.Pow(10, float64(places))
	digit := pow * val
	_, div := math.Modf(digit)
	if math.Copysign(div, val) >= math.Copysign(roundOn, val) {
		round = math.Ceil(digit)
	} else {
		round = math.Floor(digit)
	}
	return round / pow
}
