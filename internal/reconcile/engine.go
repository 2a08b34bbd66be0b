package reconcile

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/evanofslack/dynaflare/internal/config"
	"github.com/evanofslack/dynaflare/internal/metrics"
	"github.com/evanofslack/dynaflare/internal/provider"
)

type Engine interface {
	Reconcile(ctx context.Context, desired []string) (Results, error)
}

type engine struct {
	dnsProvider provider.Provider
	resolver    provider.Resolver
	zone        string
	ttl         int
	metrics     *metrics.Metrics
	log         logr.Logger
}

func NewEngine(dp provider.Provider, resolver provider.Resolver, cfg *config.Config, metrics *metrics.Metrics, log logr.Logger) *engine {
	return &engine{
		dnsProvider: dp,
		resolver:    resolver,
		zone:        cfg.Cloudflare.ZoneID,
		ttl:         cfg.Cloudflare.TTL,
		metrics:     metrics,
		log:         log,
	}
}

// Reconcile brings the desired records in line with the current public IP
// using at most one batch write. Any failure aborts the run.
func (e *engine) Reconcile(ctx context.Context, desired []string) (Results, error) {
	results, err := e.reconcile(ctx, desired)
	e.metrics.IncReconcileRun(err == nil)
	return results, err
}

func (e *engine) reconcile(ctx context.Context, desired []string) (Results, error) {
	records, err := e.dnsProvider.Records(ctx, e.zone)
	if err != nil {
		return Results{}, fmt.Errorf("retrieve dns records: %w", err)
	}
	e.log.Info("Got records from dns provider", "zone", e.zone, "count", len(records))

	ip, err := e.resolver.PublicIP(ctx)
	if err != nil {
		return Results{}, fmt.Errorf("retrieve public ip: %w", err)
	}
	e.log.Info("Got public IP", "ip", ip)

	plan := BuildPlan(desired, records, ip)

	results := Results{
		Zone:      e.zone,
		IP:        ip,
		Unchanged: len(plan.Unchanged()),
		Updated:   len(plan.Changed()),
		Created:   len(plan.Unmatched),
	}
	for _, m := range plan.Matched {
		results.RecordIDs = append(results.RecordIDs, m.ID)
	}
	e.log.V(1).Info("Plan computed", "unchanged", results.Unchanged, "update", results.Updated, "create", results.Created)

	if plan.IsConvergent() {
		e.log.Info("No changes needed", "records", len(results.RecordIDs), "ip", ip)
		return results, nil
	}

	created, err := e.dnsProvider.SubmitBatch(ctx, e.zone, plan.Batch(e.ttl))
	if err != nil {
		return Results{}, fmt.Errorf("submit dns batch: %w", err)
	}
	if len(created) != len(plan.Unmatched) {
		return Results{}, fmt.Errorf("submit dns batch: got %d created ids for %d new records", len(created), len(plan.Unmatched))
	}
	results.RecordIDs = append(results.RecordIDs, created...)

	e.metrics.AddReconcileOperations("update", results.Updated)
	e.metrics.AddReconcileOperations("create", results.Created)
	e.log.Info("Records reconciled", "updated", results.Updated, "created", results.Created, "unchanged", results.Unchanged, "ip", ip)
	return results, nil
}
