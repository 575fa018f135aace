package outbox

import (
	"math/rand"
	"time"
	"unicode/utf8"
)

// retryDelay doubles from one second per failed attempt, caps at ceiling
// and adds up to spread of random jitter.
func retryDelay(attempts int, ceiling, spread time.Duration, r *rand.Rand) time.Duration {
	if attempts <= 0 {
		return 0
	}
	d := ceiling
	if shift := attempts - 1; shift < 32 {
		if exp := time.Second << shift; exp < ceiling {
			d = exp
		}
	}
	if spread > 0 && r != nil {
		d += time.Duration(r.Int63n(int64(spread) + 1)) //nolint:gosec
	}
	return d
}

// lastError renders err for the last_error column, cut to at most max
// bytes on a rune boundary.
func lastError(err error, max int) string {
	if err == nil || max <= 0 {
		return ""
	}
	s := err.Error()
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
