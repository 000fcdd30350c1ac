package jitter

import "time"

// EqualJitter returns base/2 + r*base/2, an amount in [base/2, base].
func EqualJitter(base time.Duration, src Source) (time.Duration, error) {
	const v = "equal"
	if err := nonNegative(v, "base", base); err != nil {
		return 0, err
	}
	b := float64(base)
	half := b / 2
	return checkResult(v, half+sourceOrGlobal(src).Float64()*half, half, b)
}

// FullJitter returns min + r*(max-min), an amount in [min, max). min must be
// strictly less than max.
func FullJitter(minDelay, maxDelay time.Duration, src Source) (time.Duration, error) {
	const v = "full"
	if err := firstErr(nonNegative(v, "min", minDelay), nonNegative(v, "max", maxDelay)); err != nil {
		return 0, err
	}
	if minDelay >= maxDelay {
		return 0, &ConfigError{
			Variant: v,
			Field:   "min",
			Value:   minDelay,
			Reason:  "must be less than max (" + maxDelay.String() + ")",
		}
	}
	lo, hi := float64(minDelay), float64(maxDelay)
	return checkResult(v, lo+sourceOrGlobal(src).Float64()*(hi-lo), lo, hi)
}

// FixedJitter returns max(0, base-amount), an amount in [0, base].
func FixedJitter(base, amount time.Duration) (time.Duration, error) {
	const v = "fixed"
	if err := firstErr(nonNegative(v, "base", base), nonNegative(v, "amount", amount)); err != nil {
		return 0, err
	}
	b := float64(base)
	return checkResult(v, max(0, b-float64(amount)), 0, b)
}

// RandomJitter returns base scaled by a random factor in
// [1-fraction, 1+fraction], floored at zero. fraction must lie in [0, 1].
func RandomJitter(base time.Duration, fraction float64, src Source) (time.Duration, error) {
	const v = "random"
	if err := firstErr(nonNegative(v, "base", base), finiteFraction(v, "fraction", fraction)); err != nil {
		return 0, err
	}
	b := float64(base)
	r := sourceOrGlobal(src).Float64()
	x := max(0, b*(1+(r*2-1)*fraction))
	return checkResult(v, x, max(0, b*(1-fraction)), b*(1+fraction))
}

// DecorrelatedJitter returns an amount in [base, min(maxDelay, max(base,
// 3*prev))], where prev is the amount returned for the previous attempt.
// maxDelay must be at least base.
func DecorrelatedJitter(base, maxDelay, prev time.Duration, src Source) (time.Duration, error) {
	const v = "decorrelated"
	err := firstErr(
		nonNegative(v, "base", base),
		nonNegative(v, "maxDelay", maxDelay),
		nonNegative(v, "prev", prev),
	)
	if err != nil {
		return 0, err
	}
	if maxDelay < base {
		return 0, &ConfigError{
			Variant: v,
			Field:   "maxDelay",
			Value:   maxDelay,
			Reason:  "must be at least the base delay (" + base.String() + ")",
		}
	}
	b, capped := float64(base), float64(maxDelay)
	upper := max(b, float64(prev)*3)
	x := min(capped, b+sourceOrGlobal(src).Float64()*(upper-b))
	return checkResult(v, x, b, min(capped, upper))
}
