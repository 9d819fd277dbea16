// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/memberhub/internal/app/system/authz"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// SiteName is shown in the layout header and page titles.
const SiteName = "MemberHub"

// BaseVM contains common fields for all view models.
// Embed it in feature view models:
//
//	type listData struct {
//	    viewdata.BaseVM
//	    Rows []personRow
//	}
type BaseVM struct {
	SiteName string

	IsLoggedIn bool
	IsAdmin    bool
	Role       string
	UserName   string
	UserID     string

	Title       string
	BackURL     string
	CurrentPath string

	CSRFToken string

	// Flash is a one-line notice shown above the page body.
	Flash string
}

// NewBaseVM builds a BaseVM from the request context.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	role, name, uid, signedIn := authz.UserCtx(r)
	vm := BaseVM{
		SiteName:    SiteName,
		IsLoggedIn:  signedIn,
		IsAdmin:     signedIn && role == "admin",
		Role:        role,
		UserName:    name,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
		Flash:       r.URL.Query().Get("flash"),
	}
	if signedIn {
		vm.UserID = uid.Hex()
	}
	return vm
}
