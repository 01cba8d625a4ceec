// health.go feeds every peer record's HealthScore from a periodic
// liveness check registered with github.com/AppsFlyer/go-sundheit. The
// score is derived from LastSeen staleness: a peer heard from this
// instant scores 100, decaying linearly to 0 at the idle timeout (at
// which point the reaper evicts it anyway).
package peer

import (
	"context"
	"fmt"
	"time"

	gosundheit "github.com/AppsFlyer/go-sundheit"
	"github.com/AppsFlyer/go-sundheit/checks"
)

const peerLivenessCheckName = "peer-liveness"

// HealthMonitor runs the pool's liveness check on a go-sundheit schedule
// and exposes the aggregated healthy/unhealthy view.
type HealthMonitor struct {
	health      gosundheit.Health
	pool        *Pool
	idleTimeout time.Duration
}

// NewHealthMonitor registers the liveness check, executing every period.
// The check fails (marking the node unhealthy) only when the pool is
// non-empty and every peer has gone stale — an empty pool is a normal
// startup condition, not a health failure.
func NewHealthMonitor(pool *Pool, idleTimeout, period time.Duration) (*HealthMonitor, error) {
	m := &HealthMonitor{
		health:      gosundheit.New(),
		pool:        pool,
		idleTimeout: idleTimeout,
	}
	check := &checks.CustomCheck{
		CheckName: peerLivenessCheckName,
		CheckFunc: m.execute,
	}
	err := m.health.RegisterCheck(check,
		gosundheit.InitialDelay(period),
		gosundheit.ExecutionPeriod(period),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// execute rescores every connected peer and reports the live/stale split.
func (m *HealthMonitor) execute(_ context.Context) (interface{}, error) {
	now := time.Now()
	recs := m.pool.List()
	live := 0
	for _, rec := range recs {
		score := m.scoreFor(now.Sub(rec.LastSeen))
		m.pool.UpdateHealth(rec.Info.NodeID, score)
		if score > 0 {
			live++
		}
	}
	details := fmt.Sprintf("%d/%d peers live", live, len(recs))
	if len(recs) > 0 && live == 0 {
		return details, fmt.Errorf("peer: all %d connected peers stale", len(recs))
	}
	return details, nil
}

// scoreFor maps staleness onto [0,100]: 100 at zero age, 0 at the idle
// timeout.
func (m *HealthMonitor) scoreFor(age time.Duration) int {
	if age <= 0 {
		return 100
	}
	if age >= m.idleTimeout {
		return 0
	}
	return int(100 - age*100/m.idleTimeout)
}

// Healthy reports the aggregated check result.
func (m *HealthMonitor) Healthy() bool { return m.health.IsHealthy() }

// Stop deregisters the scheduled check.
func (m *HealthMonitor) Stop() { m.health.DeregisterAll() }
