// internal/app/features/me/types.go
package me

import (
	"github.com/dalemusser/memberhub/internal/app/system/formutil"
	"github.com/dalemusser/memberhub/internal/app/system/personview"
	"github.com/dalemusser/memberhub/internal/app/system/viewdata"
)

// viewData renders both the own page and a delegated relative's page.
// Self is false for the latter, which hides the account section.
type viewData struct {
	viewdata.BaseVM
	personview.View
	Self bool
}

type passwordData struct {
	formutil.Base
	PasswordRules string
}
