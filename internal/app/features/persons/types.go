// internal/app/features/persons/types.go
package persons

import (
	"github.com/dalemusser/memberhub/internal/app/store/queries/personlist"
	"github.com/dalemusser/memberhub/internal/app/system/formutil"
	"github.com/dalemusser/memberhub/internal/app/system/paging"
	"github.com/dalemusser/memberhub/internal/app/system/personview"
	"github.com/dalemusser/memberhub/internal/app/system/viewdata"
)

type listRow struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Status  string
	LoginID string
	Admin   bool
	Orgs    string
	Created string
}

type orgOption struct {
	ID      string
	Name    string
	Checked bool
}

// sortLink is a column header that toggles direction when already active.
type sortLink struct {
	Label  string
	URL    string
	Active bool
	Desc   bool
}

type listData struct {
	viewdata.BaseVM

	Filter    personlist.Filter
	Orgs      []orgOption // for the organization filter
	Sorts     []sortLink
	Rows      []listRow
	Page      paging.Range
	PrevURL   string
	NextURL   string
	ExportURL string
}

// formData backs the new and edit person forms.
type formData struct {
	formutil.Base

	ID        string // empty on create
	FirstName string
	LastName  string
	Email     string
	Phone     string
	BirthDate string
	Notes     string
	Orgs      []orgOption
}

type personOption struct {
	ID   string
	Name string
}

type viewData struct {
	viewdata.BaseVM
	personview.View

	RelationKinds []string
	Others        []personOption // candidates for a new relation
	PasswordRules string
}
