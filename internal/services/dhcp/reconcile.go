package dhcp

import (
	"context"
	"time"

	"monolith.network/netpkg/internal/clock"
	"monolith.network/netpkg/internal/logging"
	"monolith.network/netpkg/internal/metrics"
)

// ReconcileResult reports one reconciliation pass.
type ReconcileResult struct {
	Parsed  int `json:"parsed"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Reconciler merges parsed leases into the repository, upserting by MAC.
type Reconciler struct {
	repo    *Repository
	clock   clock.Clock
	metrics *metrics.Registry
	logger  *logging.Logger
}

// NewReconciler creates a Reconciler. A nil clock uses the real clock and
// nil metrics disables instrumentation.
func NewReconciler(repo *Repository, clk clock.Clock, m *metrics.Registry) *Reconciler {
	return &Reconciler{
		repo:    repo,
		clock:   clock.OrReal(clk),
		metrics: m,
		logger:  logging.WithComponent("leases"),
	}
}

// Reconcile upserts each lease. Storage failures are logged and counted;
// they never stop the pass and nothing is rolled back.
func (r *Reconciler) Reconcile(ctx context.Context, leases []Lease) ReconcileResult {
	res := ReconcileResult{Parsed: len(leases)}
	now := r.clock.Now()

	for _, l := range leases {
		if ctx.Err() != nil {
			r.logger.Warn("lease reconciliation cancelled", "remaining", len(leases)-res.Updated-res.Failed)
			break
		}
		if err := r.upsert(l, now); err != nil {
			res.Failed++
			r.logger.WithError(err).Warn("failed to store lease", "mac", l.MAC, "ip", l.IP)
			continue
		}
		res.Updated++
	}

	r.logger.Info("lease reconciliation complete", "parsed", res.Parsed, "updated", res.Updated, "failed", res.Failed)
	if r.metrics != nil {
		r.metrics.RecordLeaseSync(res.Parsed, res.Failed, nil)
		r.refreshGauge(now)
	}
	return res
}

func (r *Reconciler) upsert(l Lease, now time.Time) error {
	rec, err := r.repo.Lease(l.MAC)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &LeaseRecord{MAC: l.MAC}
	}
	rec.IP = l.IP
	rec.Hostname = l.Hostname
	rec.Start = l.Start
	rec.End = l.End
	rec.State = l.State
	rec.UpdatedAt = now
	return r.repo.SaveLease(rec)
}

// SyncFile parses the lease file at path and reconciles it.
func (r *Reconciler) SyncFile(ctx context.Context, path string) (ReconcileResult, error) {
	leases, err := ParseLeaseFile(path, r.clock.Now())
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordLeaseSync(0, 0, err)
		}
		return ReconcileResult{}, err
	}
	return r.Reconcile(ctx, leases), nil
}

func (r *Reconciler) refreshGauge(now time.Time) {
	records, err := r.repo.Leases()
	if err != nil {
		r.logger.WithError(err).Debug("cannot refresh lease gauge")
		return
	}
	counts := map[string]int{}
	for _, rec := range records {
		counts[string(rec.CurrentState(now))]++
	}
	r.metrics.SetLeaseCounts(counts)
}
