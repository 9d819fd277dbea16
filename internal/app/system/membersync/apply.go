// Package membersync writes reconciliation plans to MongoDB.
//
// The three batches of a plan run inside one transaction when the deployment
// supports it, so a failure leaves nothing half-written. On a standalone
// server they are issued concurrently instead and any failure is reported as
// a PartialFailure naming the batches that did and did not land. Either way
// nothing is retried automatically; resubmitting computes a fresh plan from
// the new state.
package membersync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/memberhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/memberhub/internal/app/store/memberships"
	"github.com/dalemusser/memberhub/internal/app/system/auditlog"
	"github.com/dalemusser/memberhub/internal/app/system/cache"
	"github.com/dalemusser/memberhub/internal/app/system/metrics"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/app/system/txn"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"github.com/dalemusser/memberhub/internal/domain/reconcile"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mode is how a plan was written.
type Mode string

const (
	ModeTransaction Mode = "transaction"
	ModeConcurrent  Mode = "concurrent"
)

// Result describes what Apply wrote. RunID tags the log lines and audit
// events of one application.
type Result struct {
	RunID       string
	Mode        Mode
	Deactivated int64
	Reactivated int64
	Created     []models.Membership
}

// Options carries the optional collaborators of an Applier. Nil fields
// disable the matching side effect.
type Options struct {
	Cache   cache.Cache
	Audit   *auditlog.Logger
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Applier writes plans through the membership store.
type Applier struct {
	client      *mongo.Client
	memberships *membershipstore.Store
	cache       cache.Cache
	audit       *auditlog.Logger
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
	// forceConcurrent skips the transaction attempt. Tests use it to exercise
	// the standalone path against a replica set.
	forceConcurrent bool
}

func NewApplier(client *mongo.Client, memberships *membershipstore.Store, opts Options) *Applier {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Applier{
		client:      client,
		memberships: memberships,
		cache:       opts.Cache,
		audit:       opts.Audit,
		metrics:     opts.Metrics,
		log:         log,
		now:         time.Now,
	}
}

type outcome struct {
	deactivated int64
	reactivated int64
	created     []models.Membership
}

// Apply writes plan. actor is the signed-in person who submitted it, or nil
// for operator runs. Writes are detached from ctx's cancellation so a
// dropped request does not abort batches already sent.
func (a *Applier) Apply(ctx context.Context, plan reconcile.Plan, actor *primitive.ObjectID) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	log := a.log.With(zap.String("run_id", res.RunID), zap.String("person_id", plan.PersonID.Hex()))

	a.reportAnomalies(ctx, log, plan, actor, res.RunID)
	if plan.Empty() {
		return res, nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Long())
	defer cancel()
	at := a.now().UTC()
	defer a.invalidate(ctx, plan)

	if !a.forceConcurrent {
		var out outcome
		err := txn.Run(ctx, a.client, func(sc mongo.SessionContext) error {
			var err error
			out, err = a.sequential(sc, plan, at)
			return err
		})
		switch {
		case err == nil:
			res.Mode = ModeTransaction
			a.record(ctx, log, plan, actor, res.RunID, out, allBatches(plan))
			a.countApplication(ModeTransaction, "ok")
			res.Deactivated, res.Reactivated, res.Created = out.deactivated, out.reactivated, out.created
			return res, nil
		case !txn.IsNotSupported(err):
			var pe *PersistenceError
			if !errors.As(err, &pe) {
				pe = &PersistenceError{Batch: BatchCommit, Err: err}
			}
			log.Error("membership transaction failed", zap.String("batch", string(pe.Batch)), zap.Error(pe.Err))
			a.countBatchError(pe.Batch)
			a.countApplication(ModeTransaction, "failed")
			res.Mode = ModeTransaction
			return res, pe
		}
		log.Info("transactions not supported; applying membership batches concurrently")
	}

	res.Mode = ModeConcurrent
	out, applied, failed := a.concurrent(ctx, plan, at)
	a.record(ctx, log, plan, actor, res.RunID, out, applied)
	res.Deactivated, res.Reactivated, res.Created = out.deactivated, out.reactivated, out.created

	if len(failed) == 0 {
		a.countApplication(ModeConcurrent, "ok")
		return res, nil
	}

	pf := &PartialFailure{Failed: failed, Applied: applied}
	for _, f := range failed {
		a.countBatchError(f.Batch)
		log.Error("membership batch failed", zap.String("batch", string(f.Batch)), zap.Error(f.Err))
	}
	a.countApplication(ModeConcurrent, "partial")
	a.audit.ReconcilePartialFailure(ctx, actor, plan.PersonID, pf.FailedBatches(), pf.AppliedBatches(), pf.Error(), res.RunID)
	return res, pf
}

// sequential runs the batches one after another on the transaction's
// session context.
func (a *Applier) sequential(sc mongo.SessionContext, plan reconcile.Plan, at time.Time) (outcome, error) {
	var out outcome
	var err error
	if len(plan.Deactivate) > 0 {
		if out.deactivated, err = a.memberships.Deactivate(sc, plan.DeactivateIDs(), at, membershipstore.EndReasonEdited); err != nil {
			return outcome{}, &PersistenceError{Batch: BatchDeactivate, Err: err}
		}
	}
	if len(plan.Reactivate) > 0 {
		if out.reactivated, err = a.memberships.Reactivate(sc, plan.ReactivateIDs(), at); err != nil {
			return outcome{}, &PersistenceError{Batch: BatchReactivate, Err: err}
		}
	}
	if len(plan.Create) > 0 {
		if out.created, err = a.memberships.Insert(sc, plan.PersonID, plan.Create, at); err != nil {
			return outcome{}, &PersistenceError{Batch: BatchCreate, Err: err}
		}
	}
	return out, nil
}

// concurrent issues the non-empty batches in parallel. The batches touch
// disjoint rows, so their order does not matter. A failed batch does not
// cancel the others.
func (a *Applier) concurrent(ctx context.Context, plan reconcile.Plan, at time.Time) (outcome, []Batch, []*PersistenceError) {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		out    outcome
		errs   = map[Batch]error{}
		failed []*PersistenceError
	)
	run := func(b Batch, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				mu.Lock()
				errs[b] = err
				mu.Unlock()
				return err
			}
			return nil
		})
	}

	if len(plan.Deactivate) > 0 {
		run(BatchDeactivate, func() error {
			n, err := a.memberships.Deactivate(ctx, plan.DeactivateIDs(), at, membershipstore.EndReasonEdited)
			out.deactivated = n
			return err
		})
	}
	if len(plan.Reactivate) > 0 {
		run(BatchReactivate, func() error {
			n, err := a.memberships.Reactivate(ctx, plan.ReactivateIDs(), at)
			out.reactivated = n
			return err
		})
	}
	if len(plan.Create) > 0 {
		run(BatchCreate, func() error {
			rows, err := a.memberships.Insert(ctx, plan.PersonID, plan.Create, at)
			out.created = rows
			return err
		})
	}
	_ = g.Wait()

	var applied []Batch
	for _, b := range allBatches(plan) {
		if err, ok := errs[b]; ok {
			failed = append(failed, &PersistenceError{Batch: b, Err: err})
			continue
		}
		applied = append(applied, b)
	}
	return out, applied, failed
}

// allBatches lists the non-empty batches of plan in apply order.
func allBatches(plan reconcile.Plan) []Batch {
	var out []Batch
	if len(plan.Deactivate) > 0 {
		out = append(out, BatchDeactivate)
	}
	if len(plan.Reactivate) > 0 {
		out = append(out, BatchReactivate)
	}
	if len(plan.Create) > 0 {
		out = append(out, BatchCreate)
	}
	return out
}

// record emits transition metrics and audit events for the applied batches.
func (a *Applier) record(ctx context.Context, log *zap.Logger, plan reconcile.Plan, actor *primitive.ObjectID, runID string, out outcome, applied []Batch) {
	for _, b := range applied {
		switch b {
		case BatchDeactivate:
			a.countTransition(models.TransitionLeave, out.deactivated)
			for _, c := range plan.Deactivate {
				a.audit.Membership(ctx, actor, audit.EventMembershipLeft, plan.PersonID, c.OrganizationID, c.MembershipID, runID)
			}
		case BatchReactivate:
			a.countTransition(models.TransitionRejoin, out.reactivated)
			for _, c := range plan.Reactivate {
				a.audit.Membership(ctx, actor, audit.EventMembershipRejoined, plan.PersonID, c.OrganizationID, c.MembershipID, runID)
			}
		case BatchCreate:
			a.countTransition(models.TransitionJoin, int64(len(out.created)))
			for _, m := range out.created {
				a.audit.Membership(ctx, actor, audit.EventMembershipJoined, plan.PersonID, *m.OrganizationID, m.ID, runID)
			}
		}
	}
	log.Info("membership plan applied",
		zap.Int64("deactivated", out.deactivated),
		zap.Int64("reactivated", out.reactivated),
		zap.Int("created", len(out.created)),
		zap.Int("batches", len(applied)))
}

func (a *Applier) reportAnomalies(ctx context.Context, log *zap.Logger, plan reconcile.Plan, actor *primitive.ObjectID, runID string) {
	for _, an := range plan.Anomalies {
		log.Warn("duplicate historical memberships; reactivating one",
			zap.String("organization_id", an.OrganizationID.Hex()),
			zap.String("chosen", an.Chosen.Hex()),
			zap.Int("rows", len(an.MembershipIDs)))
		if a.metrics != nil {
			a.metrics.Anomalies.Inc()
		}
		a.audit.ReconcileAnomaly(ctx, actor, plan.PersonID, an.OrganizationID, an.Chosen, an.MembershipIDs, runID)
	}
}

// invalidate drops the person and every organization the plan touched.
// It runs even when a batch failed since other batches may have landed.
func (a *Applier) invalidate(ctx context.Context, plan reconcile.Plan) {
	keys := []string{cache.PersonKey(plan.PersonID), cache.PersonsListKey}
	for _, c := range plan.Deactivate {
		keys = append(keys, cache.OrganizationKey(c.OrganizationID))
	}
	for _, c := range plan.Reactivate {
		keys = append(keys, cache.OrganizationKey(c.OrganizationID))
	}
	for _, org := range plan.Create {
		keys = append(keys, cache.OrganizationKey(org))
	}
	cache.Invalidate(ctx, a.cache, a.log, keys...)
}

func (a *Applier) countTransition(t models.MembershipTransition, n int64) {
	if a.metrics != nil && n > 0 {
		a.metrics.Transitions.WithLabelValues(string(t)).Add(float64(n))
	}
}

func (a *Applier) countBatchError(b Batch) {
	if a.metrics != nil {
		a.metrics.BatchErrors.WithLabelValues(string(b)).Inc()
	}
}

func (a *Applier) countApplication(m Mode, outcome string) {
	if a.metrics != nil {
		a.metrics.Applications.WithLabelValues(string(m), outcome).Inc()
	}
}
