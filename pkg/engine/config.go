package engine

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

// AdminConfig is the mutable admin surface (§6): finality_window and
// poll_interval can be changed at runtime (e.g. via a future HTTP admin
// endpoint calling Set*), and every loop re-reads them on each tick
// rather than capturing them once at startup.
type AdminConfig struct {
	mu               sync.RWMutex
	finalityWindow   time.Duration
	pollInterval     time.Duration
	validatorCeiling int
}

// NewAdminConfig seeds the admin surface from viper, following the
// teacher's config.yaml + viper.AutomaticEnv() pattern (cmd/gochain's
// loadConfig). Keys: finality_window, poll_interval, validator_ceiling.
func NewAdminConfig() *AdminConfig {
	c := &AdminConfig{
		finalityWindow:   5 * time.Minute,
		pollInterval:     2 * time.Second,
		validatorCeiling: 8,
	}
	if v := viper.GetDuration("finality_window"); v > 0 {
		c.finalityWindow = v
	}
	if v := viper.GetDuration("poll_interval"); v > 0 {
		c.pollInterval = v
	}
	if v := viper.GetInt("validator_ceiling"); v > 0 {
		c.validatorCeiling = v
	}
	return c
}

func (c *AdminConfig) FinalityWindow() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.finalityWindow
}

func (c *AdminConfig) SetFinalityWindow(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalityWindow = d
}

func (c *AdminConfig) PollInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pollInterval
}

func (c *AdminConfig) SetPollInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pollInterval = d
}

func (c *AdminConfig) ValidatorCeiling() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validatorCeiling
}

func (c *AdminConfig) SetValidatorCeiling(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validatorCeiling = n
}
