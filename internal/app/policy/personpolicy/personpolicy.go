// Package personpolicy decides who may see a person's data.
//
// Authorization rules:
//   - Admins can view every person
//   - A signed-in person can view themselves
//   - A person can view a relative who delegated access to them
//     (a relation row from the viewer with can_access set)
//   - Nobody else
package personpolicy

import (
	"context"
	"net/http"

	"github.com/dalemusser/memberhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessChecker reports delegated access between two persons.
// *relationstore.Store satisfies it.
type AccessChecker interface {
	CanAccess(ctx context.Context, viewer, subject primitive.ObjectID) (bool, error)
}

// CanViewPerson reports whether the current user can view subject.
func CanViewPerson(ctx context.Context, r *http.Request, checker AccessChecker, subject primitive.ObjectID) (bool, error) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		return false, nil
	}
	if authz.CanViewPerson(r, subject) {
		return true, nil
	}
	return checker.CanAccess(ctx, uid, subject)
}
