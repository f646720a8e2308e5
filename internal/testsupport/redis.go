package testsupport

import (
	"testing"

	"github.com/alicebob/miniredis/v2"

	"scribe/internal/config"
)

// NewRedis starts an in-process Redis server, points the config at it, and
// registers cleanup.
func NewRedis(t testing.TB, cfg *config.Config) *miniredis.Miniredis {
	t.Helper()

	srv := miniredis.RunT(t)
	cfg.Redis.Addr = srv.Addr()
	return srv
}
