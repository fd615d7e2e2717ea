package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

// NewRedis starts an in-memory Redis server that is shut down with the test.
// It returns the server and a redis:// URL pointing at it.
func NewRedis(t testing.TB) (*miniredis.Miniredis, string) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, "redis://" + mr.Addr()
}
