// Package watch keeps reconciled records pointed at the public IP after
// startup, re-applying the new address whenever it changes.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/evanofslack/dynaflare/internal/metrics"
	"github.com/evanofslack/dynaflare/internal/provider"
	"github.com/evanofslack/dynaflare/internal/reconcile"
	"github.com/evanofslack/dynaflare/internal/report"
	"github.com/evanofslack/dynaflare/internal/state"
)

// Signal tells the scheduler whether to keep going after a cycle.
type Signal int

const (
	Continue Signal = iota
	Stop
)

// RunState is what the watcher knows about the records it maintains.
type RunState struct {
	Zone      string
	RecordIDs []string
	LastIP    string
}

type Watcher struct {
	state       RunState
	resolver    provider.Resolver
	dnsProvider provider.Provider
	reporter    *report.Reporter
	store       state.Manager
	metrics     *metrics.Metrics
	log         logr.Logger

	// After is the clock used between cycles.
	After func(time.Duration) <-chan time.Time
	now   func() time.Time
}

// New starts from the outcome of the startup reconciliation. store may be nil.
func New(results reconcile.Results, resolver provider.Resolver, dp provider.Provider, reporter *report.Reporter, store state.Manager, metrics *metrics.Metrics, log logr.Logger) *Watcher {
	ids := make([]string, len(results.RecordIDs))
	copy(ids, results.RecordIDs)
	return &Watcher{
		state: RunState{
			Zone:      results.Zone,
			RecordIDs: ids,
			LastIP:    results.IP,
		},
		resolver:    resolver,
		dnsProvider: dp,
		reporter:    reporter,
		store:       store,
		metrics:     metrics,
		log:         log,
		After:       time.After,
		now:         time.Now,
	}
}

func (w *Watcher) State() RunState {
	return w.state
}

// Run checks for drift every interval until ctx is done. Cycles never
// overlap: the next wait starts once the previous cycle has returned.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	w.log.Info("Watching public IP", "interval", interval, "records", len(w.state.RecordIDs), "ip", w.state.LastIP)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Stopping watch loop")
			return
		case <-w.After(interval):
		}
		if w.Cycle(ctx) == Stop {
			w.log.Info("Stopping watch loop")
			return
		}
	}
}

// Cycle performs one drift check and, when the IP moved, one update batch.
func (w *Watcher) Cycle(ctx context.Context) Signal {
	if ctx.Err() != nil {
		return Stop
	}

	ip, err := w.resolver.PublicIP(ctx)
	if err != nil {
		return w.fail(ctx, fmt.Errorf("retrieve public ip: %w", err))
	}

	if ip == w.state.LastIP {
		w.log.V(1).Info("Public IP unchanged", "ip", ip)
		w.metrics.IncWatchCycle("unchanged")
		w.reporter.Report(nil)
		return Continue
	}

	if len(w.state.RecordIDs) > 0 {
		batch := provider.UpdateBatch(w.state.RecordIDs, ip)
		if _, err := w.dnsProvider.SubmitBatch(ctx, w.state.Zone, batch); err != nil {
			return w.fail(ctx, fmt.Errorf("update dns records: %w", err))
		}
	}

	old := w.state.LastIP
	w.state.LastIP = ip
	w.metrics.IncWatchCycle("updated")
	w.metrics.IncIPChange()
	w.reporter.Report(nil)
	w.log.Info("Public IP changed, records updated", "old", old, "new", ip, "records", len(w.state.RecordIDs))
	w.SaveSnapshot(ctx)
	return Continue
}

func (w *Watcher) fail(ctx context.Context, err error) Signal {
	// calls interrupted by shutdown are not reported
	if ctx.Err() != nil {
		return Stop
	}
	w.metrics.IncWatchCycle("failed")
	w.reporter.Report(err)
	return Continue
}

// SaveSnapshot publishes the current run state to the status store.
func (w *Watcher) SaveSnapshot(ctx context.Context) {
	if w.store == nil {
		return
	}
	ids := make([]string, len(w.state.RecordIDs))
	copy(ids, w.state.RecordIDs)
	snapshot := state.Snapshot{
		Zone:      w.state.Zone,
		RecordIDs: ids,
		IP:        w.state.LastIP,
		UpdatedAt: w.now().UTC(),
	}
	if err := w.store.SaveSnapshot(ctx, snapshot); err != nil {
		w.log.Error(err, "Failed to save snapshot")
	}
}
