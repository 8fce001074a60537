// Package health aggregates liveness of the three backing connections.
package health

import (
	"context"
	"sync"
)

// Probe reports liveness of one dependency. Probes return false on failure
// and never error.
type Probe func(ctx context.Context) bool

// Checks holds the per-dependency results.
type Checks struct {
	Database bool `json:"database"`
	Redis    bool `json:"redis"`
	MQTT     bool `json:"mqtt"`
}

// Aggregator polls the three probes.
type Aggregator struct {
	database Probe
	redis    Probe
	mqtt     Probe
}

// New creates an aggregator over the three probes.
func New(database, redis, mqtt Probe) *Aggregator {
	return &Aggregator{database: database, redis: redis, mqtt: mqtt}
}

// CheckAll runs the probes concurrently and returns the per-dependency
// results plus the overall AND. A failed probe degrades only its own
// dimension.
func (a *Aggregator) CheckAll(ctx context.Context) (Checks, bool) {
	var (
		checks Checks
		wg     sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		checks.Database = a.database(ctx)
	}()
	go func() {
		defer wg.Done()
		checks.Redis = a.redis(ctx)
	}()
	go func() {
		defer wg.Done()
		checks.MQTT = a.mqtt(ctx)
	}()
	wg.Wait()

	return checks, checks.Database && checks.Redis && checks.MQTT
}
