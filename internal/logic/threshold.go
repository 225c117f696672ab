package logic

// NeedsCooling applies hysteresis to a chamber temperature. Demand turns on
// above target+hysteresis, turns off at or below target, and is held in
// between. The sum is computed in int so no int8 pair can overflow; a negative
// hysteresis is treated as zero.
func NeedsCooling(current, target, hysteresis int8, previous bool) bool {
	band := max(int(hysteresis), 0)
	switch {
	case int(current) > int(target)+band:
		return true
	case current <= target:
		return false
	default:
		return previous
	}
}
