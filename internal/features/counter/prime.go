package counter

import (
	"context"
	"fmt"
)

// NthPrime returns the n-th prime (NthPrime(1) == 2) by trial division.
// It checks ctx periodically so a cancelled effect stops promptly.
func NthPrime(ctx context.Context, n int) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("nth prime: n must be positive, got %d", n)
	}
	primes := make([]int, 0, n)
	for candidate := 2; ; candidate++ {
		if candidate%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		isPrime := true
		for _, p := range primes {
			if p*p > candidate {
				break
			}
			if candidate%p == 0 {
				isPrime = false
				break
			}
		}
		if !isPrime {
			continue
		}
		primes = append(primes, candidate)
		if len(primes) == n {
			return candidate, nil
		}
	}
}

// Ordinal formats n as "1st", "2nd", "11th", "10000th".
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
