package membersync

import (
	"errors"
	"fmt"
	"strings"

	membershipstore "github.com/dalemusser/memberhub/internal/app/store/memberships"
	"github.com/dalemusser/memberhub/internal/domain/reconcile"
)

// Batch names one of the write batches of a reconciliation.
type Batch string

const (
	BatchDeactivate Batch = "deactivate"
	BatchReactivate Batch = "reactivate"
	BatchCreate     Batch = "create"
	// BatchCommit is reported when a transaction failed outside any batch.
	BatchCommit Batch = "commit"
)

// PersistenceError is a batch that the backend rejected. It is never retried.
type PersistenceError struct {
	Batch Batch
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s batch failed: %v", e.Batch, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PartialFailure reports a concurrent apply where some batches failed and the
// others were written. Resubmitting the same form finishes the job.
type PartialFailure struct {
	Failed  []*PersistenceError
	Applied []Batch
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("membership update partially applied: failed [%s], applied [%s]",
		strings.Join(e.FailedBatches(), ", "), strings.Join(batchNames(e.Applied), ", "))
}

func (e *PartialFailure) Unwrap() []error {
	out := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		out[i] = f
	}
	return out
}

// FailedBatches returns the names of the failed batches in apply order.
func (e *PartialFailure) FailedBatches() []string {
	out := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		out[i] = string(f.Batch)
	}
	return out
}

// AppliedBatches returns the names of the batches that were written.
func (e *PartialFailure) AppliedBatches() []string { return batchNames(e.Applied) }

func batchNames(bs []Batch) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = string(b)
	}
	return out
}

// Describe turns an error from Reconcile or Apply into a message for the
// person who submitted the form.
func Describe(err error) string {
	var ve *reconcile.ValidationError
	var pf *PartialFailure
	var pe *PersistenceError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return "Membership selection is invalid: " + ve.Error() + "."
	case errors.Is(err, membershipstore.ErrDuplicateActive) && !partlySaved(err):
		return "These memberships were changed by another submission at the same time. Nothing was changed; reload the page to see the current memberships."
	case errors.As(err, &pf):
		msg := "Memberships were only partly saved. Failed: " + strings.Join(pf.FailedBatches(), ", ") + "."
		if len(pf.Applied) > 0 {
			msg += " Saved: " + strings.Join(pf.AppliedBatches(), ", ") + "."
		}
		return msg + " Submit the form again to finish."
	case errors.As(err, &pe):
		return "Saving memberships failed (" + string(pe.Batch) + "). Nothing was changed."
	}
	return "Saving memberships failed."
}

func partlySaved(err error) bool {
	var pf *PartialFailure
	return errors.As(err, &pf) && len(pf.Applied) > 0
}
