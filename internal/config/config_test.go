package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "./data/granules", cfg.GranuleDir)
	assert.Equal(t, 256, cfg.TileSize)
	assert.Equal(t, 18, cfg.MaxZoom)
	assert.Equal(t, 2000, cfg.CacheMaxTiles)
	assert.Equal(t, time.Duration(0), cfg.CacheTTL)
	assert.Equal(t, 0.1, cfg.WaterLevelQuantum)
	assert.Empty(t, cfg.MBTilesPath)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "granule-updates", cfg.KafkaTopic)
	assert.Equal(t, "flood-tile-service", cfg.KafkaGroupID)
	assert.False(t, cfg.WarmupEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("GRANULE_DIR", "/srv/elevation")
	t.Setenv("TILE_SIZE", "512")
	t.Setenv("MAX_ZOOM", "16")
	t.Setenv("CACHE_MAX_TILES", "500")
	t.Setenv("CACHE_TTL", "15m")
	t.Setenv("WATER_LEVEL_QUANTUM", "0.25")
	t.Setenv("MBTILES_PATH", "/srv/vector/world.mbtiles")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-updates")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/srv/elevation", cfg.GranuleDir)
	assert.Equal(t, 512, cfg.TileSize)
	assert.Equal(t, 16, cfg.MaxZoom)
	assert.Equal(t, 500, cfg.CacheMaxTiles)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 0.25, cfg.WaterLevelQuantum)
	assert.Equal(t, "/srv/vector/world.mbtiles", cfg.MBTilesPath)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-updates", cfg.KafkaTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
}

func TestLoad_Warmup(t *testing.T) {
	t.Setenv("WARMUP_ENABLED", "true")
	t.Setenv("WARMUP_BBOX", "8.4,47.2, 8.7,47.5")
	t.Setenv("WARMUP_MIN_ZOOM", "9")
	t.Setenv("WARMUP_MAX_ZOOM", "11")
	t.Setenv("WARMUP_WATER_LEVELS", "0,1.5,3")
	t.Setenv("WARMUP_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.WarmupEnabled)
	assert.Equal(t, 8.4, cfg.WarmupMinLon)
	assert.Equal(t, 47.2, cfg.WarmupMinLat)
	assert.Equal(t, 8.7, cfg.WarmupMaxLon)
	assert.Equal(t, 47.5, cfg.WarmupMaxLat)
	assert.Equal(t, 9, cfg.WarmupMinZoom)
	assert.Equal(t, 11, cfg.WarmupMaxZoom)
	assert.Equal(t, []float64{0, 1.5, 3}, cfg.WarmupWaterLevels)
	assert.Equal(t, 8, cfg.WarmupWorkers)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidTileSize(t *testing.T) {
	t.Setenv("TILE_SIZE", "8")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TILE_SIZE")
}

func TestLoad_TileSizeNotANumber(t *testing.T) {
	t.Setenv("TILE_SIZE", "big")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TILE_SIZE")
}

func TestLoad_InvalidMaxZoom(t *testing.T) {
	t.Setenv("MAX_ZOOM", "30")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_ZOOM")
}

func TestLoad_InvalidCacheMaxTiles(t *testing.T) {
	t.Setenv("CACHE_MAX_TILES", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_MAX_TILES")
}

func TestLoad_NegativeCacheTTL(t *testing.T) {
	t.Setenv("CACHE_TTL", "-5m")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestLoad_InvalidWaterLevelQuantum(t *testing.T) {
	t.Setenv("WATER_LEVEL_QUANTUM", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WATER_LEVEL_QUANTUM")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_WarmupWithoutBBox(t *testing.T) {
	t.Setenv("WARMUP_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WARMUP_BBOX")
}

func TestLoad_WarmupMalformedBBox(t *testing.T) {
	t.Setenv("WARMUP_ENABLED", "true")
	t.Setenv("WARMUP_BBOX", "8.4,47.2,8.7")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WARMUP_BBOX")
}

func TestLoad_WarmupInvertedZoomRange(t *testing.T) {
	t.Setenv("WARMUP_ENABLED", "true")
	t.Setenv("WARMUP_BBOX", "8.4,47.2,8.7,47.5")
	t.Setenv("WARMUP_MIN_ZOOM", "12")
	t.Setenv("WARMUP_MAX_ZOOM", "10")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WARMUP_MIN_ZOOM")
}
