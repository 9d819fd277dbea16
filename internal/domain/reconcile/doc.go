// Package reconcile turns a submitted set of desired organization memberships
// into the concrete operations needed to bring a person's membership rows in
// line with it.
//
// The package is pure: it reads a Snapshot, a Desired set and returns a Plan.
// Applying the plan against storage is membersync's job.
//
// Rows are matched by organization id compared as lowercase hex strings,
// since form values arrive as strings and stored ids are ObjectIDs.
package reconcile
