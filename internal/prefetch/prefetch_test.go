package prefetch_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-tile-service/internal/config"
	"github.com/couchcryptid/flood-tile-service/internal/domain"
	"github.com/couchcryptid/flood-tile-service/internal/observability"
	"github.com/couchcryptid/flood-tile-service/internal/prefetch"
)

// --- mocks ---

type mockRenderer struct {
	mu       sync.Mutex
	rendered map[string]int
	cached   map[string]bool
	failOn   string
}

func newMockRenderer() *mockRenderer {
	return &mockRenderer{
		rendered: make(map[string]int),
		cached:   make(map[string]bool),
	}
}

func tileKey(level float64, z, x, y int) string {
	return fmt.Sprintf("%g/%d/%d/%d", level, z, x, y)
}

func (m *mockRenderer) RenderTile(_ context.Context, level float64, z, x, y int) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tileKey(level, z, x, y)
	if key == m.failOn {
		return nil, "", errors.New("granule archive offline")
	}
	m.rendered[key]++
	return []byte{1}, "image/png", nil
}

func (m *mockRenderer) Cached(level float64, z, x, y int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cached[tileKey(level, z, x, y)]
}

func (m *mockRenderer) renderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.rendered {
		total += n
	}
	return total
}

// --- helpers ---

// warmupConfig covers three zoom-10 tiles (x 536..538, y 358) around the
// Swiss/Austrian border.
func warmupConfig(levels ...float64) *config.Config {
	return &config.Config{
		WarmupMinLon:      8.5,
		WarmupMinLat:      47.3,
		WarmupMaxLon:      9.3,
		WarmupMaxLat:      47.45,
		WarmupMinZoom:     10,
		WarmupMaxZoom:     10,
		WarmupWaterLevels: levels,
		WarmupWorkers:     2,
	}
}

func newWarmer(cfg *config.Config, r *mockRenderer) *prefetch.Warmer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return prefetch.NewWarmer(cfg, r, logger, observability.NewMetricsForTesting())
}

// --- tests ---

func TestWarmer_PrimesConfiguredArea(t *testing.T) {
	renderer := newMockRenderer()
	w := newWarmer(warmupConfig(0, 2), renderer)

	w.Run(context.Background())

	assert.Equal(t, 6, renderer.renderCount(), "3 tiles x 2 water levels")
	for _, level := range []float64{0, 2} {
		for x := 536; x <= 538; x++ {
			assert.Equal(t, 1, renderer.rendered[tileKey(level, 10, x, 358)])
		}
	}
}

func TestWarmer_SpansZoomRange(t *testing.T) {
	cfg := warmupConfig(0)
	cfg.WarmupMinZoom = 9
	renderer := newMockRenderer()
	w := newWarmer(cfg, renderer)

	w.Run(context.Background())

	want := 0
	for z := 9; z <= 10; z++ {
		rng, err := domain.BBoxToTileRange(8.5, 47.3, 9.3, 47.45, z)
		require.NoError(t, err)
		want += rng.Count()
	}
	assert.Equal(t, want, renderer.renderCount())
}

func TestWarmer_SkipsCachedTiles(t *testing.T) {
	renderer := newMockRenderer()
	renderer.cached[tileKey(0, 10, 537, 358)] = true
	w := newWarmer(warmupConfig(0), renderer)

	w.Run(context.Background())

	assert.Equal(t, 2, renderer.renderCount())
	assert.NotContains(t, renderer.rendered, tileKey(0, 10, 537, 358))
}

func TestWarmer_RenderFailureDoesNotAbort(t *testing.T) {
	renderer := newMockRenderer()
	renderer.failOn = tileKey(0, 10, 537, 358)
	w := newWarmer(warmupConfig(0), renderer)

	w.Run(context.Background())

	assert.Equal(t, 2, renderer.renderCount())
	assert.Contains(t, renderer.rendered, tileKey(0, 10, 536, 358))
	assert.Contains(t, renderer.rendered, tileKey(0, 10, 538, 358))
}

func TestWarmer_ContextCancelled(t *testing.T) {
	renderer := newMockRenderer()
	w := newWarmer(warmupConfig(0), renderer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	assert.Equal(t, 0, renderer.renderCount())
}
