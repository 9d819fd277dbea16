// Package formutil helps re-render a form after a failed submission: the
// posted values are echoed back together with an error message.
//
//	type orgFormData struct {
//		formutil.Base
//		Name string
//	}
//
//	data := orgFormData{Name: name}
//	formutil.SetBase(&data.Base, r, "New Organization", "/organizations")
//	data.SetError("Name is required.")
package formutil

import (
	"html/template"
	"net/http"

	"github.com/dalemusser/memberhub/internal/app/system/inputval"
	"github.com/dalemusser/memberhub/internal/app/system/viewdata"
)

// Base contains common fields for form pages.
type Base struct {
	viewdata.BaseVM
	Error template.HTML
}

// SetBase populates the common fields from the request.
func SetBase(b *Base, r *http.Request, title, backDefault string) {
	b.BaseVM = viewdata.NewBaseVM(r, title, backDefault)
}

// SetError sets the error message shown above the form.
func (b *Base) SetError(msg string) {
	b.Error = template.HTML(template.HTMLEscapeString(msg))
}

// SetValidation shows the first validation message, if any. It reports
// whether a message was set.
func (b *Base) SetValidation(res inputval.Result) bool {
	if res.OK() {
		return false
	}
	b.SetError(res.First())
	return true
}
