// Package seed generates a synthetic season of session records and loads
// it into a store or a running service.
package seed

import (
	"time"

	"cloud.google.com/go/civil"
)

// Config holds configuration for one generated season.
type Config struct {
	BaseURL         string        // Base URL of a running service; empty loads directly into a store
	Players         int           // Number of players per team
	Teams           []string      // Team names
	Start           civil.Date    // First day of the season
	Weeks           int           // Number of weeks to generate
	SessionsPerWeek int           // Training sessions per player per week, plus one match
	Seed            int64         // Random seed; the same seed yields the same season
	BatchSize       int           // Rows per insert or POST
	Workers         int           // Concurrent POST workers
	Timeout         time.Duration // HTTP request timeout
	OutputFile      string        // Optional JSON dump of the generated rows
}

// Default configuration constants.
const (
	DefaultPlayers         = 18
	DefaultWeeks           = 12
	DefaultSessionsPerWeek = 4
	DefaultBatchSize       = 500
	DefaultWorkers         = 4
	DefaultTimeout         = 30 * time.Second
)

// DefaultTeams are used when Config.Teams is empty.
var DefaultTeams = []string{"First Team", "U21"}

func (c Config) withDefaults() Config {
	if c.Players <= 0 {
		c.Players = DefaultPlayers
	}
	if len(c.Teams) == 0 {
		c.Teams = DefaultTeams
	}
	if !c.Start.IsValid() {
		c.Start = civil.DateOf(time.Now()).AddDays(-7 * DefaultWeeks)
	}
	if c.Weeks <= 0 {
		c.Weeks = DefaultWeeks
	}
	if c.SessionsPerWeek <= 0 {
		c.SessionsPerWeek = DefaultSessionsPerWeek
	}
	if c.SessionsPerWeek > 6 {
		c.SessionsPerWeek = 6
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}
