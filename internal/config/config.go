package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Elevation source and render geometry.
	GranuleDir string
	TileSize   int
	MaxZoom    int

	// Render cache sizing and keying.
	CacheMaxTiles     int
	CacheTTL          time.Duration // zero disables expiry
	WaterLevelQuantum float64

	// Vector cross-reference probe for audits; empty path disables it.
	MBTilesPath string

	// Granule update notifications (KAFKA_ENABLED / KAFKA_BROKERS).
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Startup cache warmup.
	WarmupEnabled     bool
	WarmupMinLon      float64
	WarmupMinLat      float64
	WarmupMaxLon      float64
	WarmupMaxLat      float64
	WarmupMinZoom     int
	WarmupMaxZoom     int
	WarmupWaterLevels []float64
	WarmupWorkers     int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	if shutdownTimeout <= 0 {
		return nil, errors.New("SHUTDOWN_TIMEOUT must be positive")
	}

	tileSize, err := parseIntEnv("TILE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	if tileSize < 16 || tileSize > 2048 {
		return nil, errors.New("TILE_SIZE must be between 16 and 2048")
	}

	maxZoom, err := parseIntEnv("MAX_ZOOM", 18)
	if err != nil {
		return nil, err
	}
	if maxZoom < 0 || maxZoom > 22 {
		return nil, errors.New("MAX_ZOOM must be between 0 and 22")
	}

	cacheMaxTiles, err := parseIntEnv("CACHE_MAX_TILES", 2000)
	if err != nil {
		return nil, err
	}
	if cacheMaxTiles < 1 {
		return nil, errors.New("CACHE_MAX_TILES must be at least 1")
	}

	cacheTTL, err := parseDurationEnv("CACHE_TTL", "0s")
	if err != nil {
		return nil, err
	}
	if cacheTTL < 0 {
		return nil, errors.New("CACHE_TTL must not be negative")
	}

	quantum, err := parseFloatEnv("WATER_LEVEL_QUANTUM", 0.1)
	if err != nil {
		return nil, err
	}
	if quantum <= 0 || math.IsInf(quantum, 0) || math.IsNaN(quantum) {
		return nil, errors.New("WATER_LEVEL_QUANTUM must be a positive number")
	}

	warmupWorkers, err := parseIntEnv("WARMUP_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GranuleDir: envOrDefault("GRANULE_DIR", "./data/granules"),
		TileSize:   tileSize,
		MaxZoom:    maxZoom,

		CacheMaxTiles:     cacheMaxTiles,
		CacheTTL:          cacheTTL,
		WaterLevelQuantum: quantum,

		MBTilesPath: os.Getenv("MBTILES_PATH"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "granule-updates"),
		KafkaGroupID: envOrDefault("KAFKA_GROUP_ID", "flood-tile-service"),

		WarmupEnabled: os.Getenv("WARMUP_ENABLED") == "true",
		WarmupWorkers: warmupWorkers,
	}

	if cfg.GranuleDir == "" {
		return nil, errors.New("GRANULE_DIR is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is not set")
		}
	}

	if cfg.WarmupEnabled {
		if err := loadWarmup(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadWarmup parses the warmup area, zoom span, and water levels. Only called
// when WARMUP_ENABLED is true; the warmup config is otherwise left zeroed.
func loadWarmup(cfg *Config) error {
	bbox := os.Getenv("WARMUP_BBOX")
	if bbox == "" {
		return errors.New("WARMUP_ENABLED is true but WARMUP_BBOX is not set")
	}
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return errors.New("WARMUP_BBOX must be min_lon,min_lat,max_lon,max_lat")
	}
	coords := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("invalid WARMUP_BBOX coordinate %q", p)
		}
		coords[i] = v
	}
	cfg.WarmupMinLon, cfg.WarmupMinLat = coords[0], coords[1]
	cfg.WarmupMaxLon, cfg.WarmupMaxLat = coords[2], coords[3]

	minZoom, err := parseIntEnv("WARMUP_MIN_ZOOM", 8)
	if err != nil {
		return err
	}
	maxZoom, err := parseIntEnv("WARMUP_MAX_ZOOM", 10)
	if err != nil {
		return err
	}
	if minZoom < 0 || maxZoom > cfg.MaxZoom || minZoom > maxZoom {
		return errors.New("WARMUP_MIN_ZOOM/WARMUP_MAX_ZOOM must be an ascending range within MAX_ZOOM")
	}
	cfg.WarmupMinZoom, cfg.WarmupMaxZoom = minZoom, maxZoom

	for _, s := range strings.Split(envOrDefault("WARMUP_WATER_LEVELS", "0"), ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid WARMUP_WATER_LEVELS entry %q", s)
		}
		cfg.WarmupWaterLevels = append(cfg.WarmupWaterLevels, v)
	}

	if cfg.WarmupWorkers < 1 {
		return errors.New("WARMUP_WORKERS must be at least 1")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseIntEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		s = def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}
