package dispatch

import (
	"math"
	"math/rand"
)

// WindowLen is the number of stops of an L-stop tour handed to the actor
// for a given eta. It lies in [1, L] for any L > 0.
func WindowLen(l int, eta float64) int {
	if l <= 0 {
		return 0
	}
	if eta >= 1 {
		return l
	}
	return min(l, max(1, int(math.Floor(float64(l)*eta))))
}

// Window picks the committed slice [start, start+length) of an l-stop tour.
func Window(l int, eta float64, first bool, rng *rand.Rand) (start, length int) {
	length = WindowLen(l, eta)
	if first || length >= l || rng == nil {
		return 0, length
	}
	return rng.Intn(l - length + 1), length
}

// orient reverses stops in place when the actor is closer to the tail.
func orient[T any](stops []T, costTo func(T) float64) {
	if len(stops) < 2 {
		return
	}
	if costTo(stops[len(stops)-1]) < costTo(stops[0]) {
		for i, j := 0, len(stops)-1; i < j; i, j = i+1, j-1 {
			stops[i], stops[j] = stops[j], stops[i]
		}
	}
}
