// internal/app/features/organizations/types.go
package organizations

import (
	"github.com/dalemusser/memberhub/internal/app/system/formutil"
	"github.com/dalemusser/memberhub/internal/app/system/viewdata"
)

// listItem is a single row in the organizations list.
type listItem struct {
	ID            string
	Name          string
	BankAccount   string
	ActiveMembers int
}

type listData struct {
	viewdata.BaseVM
	Items []listItem
}

// orgFormData backs both the new and the edit form.
type orgFormData struct {
	formutil.Base

	ID                 string // empty on create
	Name               string
	BankAccount        string
	RegistrationNumber string
}

type paymentRow struct {
	ID       string
	Year     int
	Amount   string
	LateFee  string
	Deadline string
}

type viewData struct {
	viewdata.BaseVM

	ID                 string
	Name               string
	BankAccount        string
	RegistrationNumber string
	ActiveMembers      int64
	Payments           []paymentRow
	CanDelete          bool
}

type paymentFormData struct {
	formutil.Base

	OrgID    string
	OrgName  string
	ID       string // empty on create
	Year     string
	Amount   string
	LateFee  string
	Deadline string
}
