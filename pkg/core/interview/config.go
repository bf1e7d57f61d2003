package interview

import (
	"os"
	"strconv"
	"time"

	"promptsmith/pkg/core/guard"
)

// Config carries the numeric knobs of the orchestration. It is built once at
// startup and passed in; the orchestration never reads ambient globals.
type Config struct {
	Timeout      time.Duration
	Retries      int
	HistoryCap   int
	RoundLimit   int
	MinVariables int
	CountPolicy  guard.CountPolicy
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      180 * time.Second,
		Retries:      2,
		HistoryCap:   40,
		RoundLimit:   6,
		MinVariables: 3,
		CountPolicy:  guard.CountLenient,
	}
}

// ConfigFromEnv overlays environment knobs onto the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := envInt("LLM_TIMEOUT_SECONDS"); v > 0 {
		cfg.Timeout = time.Duration(v) * time.Second
	}
	if v := envInt("LLM_RETRIES"); v > 0 {
		cfg.Retries = v
	}
	if v := envInt("HISTORY_CAP"); v > 0 {
		cfg.HistoryCap = v
	}
	if v, ok := envIntOK("INTERVIEW_ROUND_LIMIT"); ok {
		cfg.RoundLimit = v // zero disables the limit
	}
	if v := envInt("MIN_VARIABLES"); v > 0 {
		cfg.MinVariables = v
	}
	if os.Getenv("VARIABLE_COUNT_POLICY") == string(guard.CountStrict) {
		cfg.CountPolicy = guard.CountStrict
	}
	return cfg
}

func envInt(key string) int {
	v, _ := envIntOK(key)
	return v
}

func envIntOK(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
