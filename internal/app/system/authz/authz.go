// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/memberhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, person id and a found flag.
// A missing user or a malformed id yields "visitor", "", NilObjectID, false.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == "admin"
}

// IsSelf reports whether personID is the signed-in person.
func IsSelf(r *http.Request, personID primitive.ObjectID) bool {
	_, _, uid, ok := UserCtx(r)
	return ok && !personID.IsZero() && uid == personID
}

// CanViewPerson: admins see everyone, members see only themselves.
func CanViewPerson(r *http.Request, personID primitive.ObjectID) bool {
	return IsAdmin(r) || IsSelf(r, personID)
}
