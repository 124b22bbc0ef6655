package dispatch

import (
	"fmt"
	"time"

	"github.com/veeo/driver-dispatch/core/assignment"
)

// Config defines dispatch-related settings.
type Config struct {
	SearchRadiusKm        float64 `json:"search_radius_km"`
	MaxSearchRadiusKm     float64 `json:"max_search_radius_km"`
	SearchRadiusIncrement float64 `json:"search_radius_increment"`
	MaxSearchAttempts     int     `json:"max_search_attempts"`

	// DriverResponseTimeoutSeconds and MaxWaitingTimeSeconds are carried in
	// the configuration and exposed to callers; the engine does not enforce
	// them itself.
	DriverResponseTimeoutSeconds int `json:"driver_response_timeout_seconds"`
	MaxWaitingTimeSeconds        int `json:"max_waiting_time_seconds"`

	AssignmentStrategy assignment.StrategyName `json:"assignment_strategy"`
	MaxDriversToNotify int                     `json:"max_drivers_to_notify"`

	EnablePush    bool `json:"enable_push"`
	EnableSMS     bool `json:"enable_sms"`
	EnableEmail   bool `json:"enable_email"`
	EnableWebhook bool `json:"enable_webhook"`

	AutoAcceptEnabled      bool `json:"auto_accept_enabled"`
	AutoAcceptDelaySeconds int  `json:"auto_accept_delay_seconds"`

	// AutoReassignOnDecline restarts the search, excluding the declining
	// driver, when a driver turns down an assigned ride. Off by default so a
	// declined request stays parked until the caller resubmits.
	AutoReassignOnDecline bool `json:"auto_reassign_on_decline"`
}

// SetDefaults fills zero values with production defaults.
func (c *Config) SetDefaults() {
	if c.SearchRadiusKm == 0 {
		c.SearchRadiusKm = 5
	}
	if c.MaxSearchRadiusKm == 0 {
		c.MaxSearchRadiusKm = 15
	}
	if c.SearchRadiusIncrement == 0 {
		c.SearchRadiusIncrement = 2
	}
	if c.MaxSearchAttempts == 0 {
		c.MaxSearchAttempts = 3
	}
	if c.DriverResponseTimeoutSeconds == 0 {
		c.DriverResponseTimeoutSeconds = 30
	}
	if c.MaxWaitingTimeSeconds == 0 {
		c.MaxWaitingTimeSeconds = 120
	}
	if c.AssignmentStrategy == "" {
		c.AssignmentStrategy = assignment.StrategyNearest
	}
	if c.MaxDriversToNotify == 0 {
		c.MaxDriversToNotify = 5
	}
	if c.AutoAcceptDelaySeconds == 0 {
		c.AutoAcceptDelaySeconds = 10
	}
	// A configuration with every channel off cannot reach any driver, so it
	// is treated as unset and gets the push default.
	if !c.EnablePush && !c.EnableSMS && !c.EnableEmail && !c.EnableWebhook {
		c.EnablePush = true
	}
}

// DefaultConfig returns the production defaults: push notifications on, all
// other channels off.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// Validate checks the configuration for contract violations.
func (c Config) Validate() error {
	if c.SearchRadiusKm <= 0 {
		return fmt.Errorf("search_radius_km must be positive, got %v", c.SearchRadiusKm)
	}
	if c.MaxSearchRadiusKm < c.SearchRadiusKm {
		return fmt.Errorf("max_search_radius_km %v is below search_radius_km %v", c.MaxSearchRadiusKm, c.SearchRadiusKm)
	}
	if c.SearchRadiusIncrement < 0 {
		return fmt.Errorf("search_radius_increment must not be negative, got %v", c.SearchRadiusIncrement)
	}
	if c.MaxSearchAttempts <= 0 {
		return fmt.Errorf("max_search_attempts must be positive, got %d", c.MaxSearchAttempts)
	}
	if c.MaxDriversToNotify <= 0 {
		return fmt.Errorf("max_drivers_to_notify must be positive, got %d", c.MaxDriversToNotify)
	}
	switch c.AssignmentStrategy {
	case assignment.StrategyNearest, assignment.StrategyQueue, assignment.StrategyRating, assignment.StrategyBalanced:
	default:
		return fmt.Errorf("unknown assignment_strategy %q", c.AssignmentStrategy)
	}
	return nil
}

// AutoAcceptDelay returns the auto-accept wait as a duration.
func (c Config) AutoAcceptDelay() time.Duration {
	return time.Duration(c.AutoAcceptDelaySeconds) * time.Second
}

// Params maps the configuration to strategy parameters at the given radius.
func (c Config) Params(radiusKm float64) assignment.Params {
	return assignment.Params{
		SearchRadiusKm:     radiusKm,
		MaxSearchRadiusKm:  c.MaxSearchRadiusKm,
		MaxDriversToNotify: c.MaxDriversToNotify,
	}
}
