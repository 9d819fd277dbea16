// internal/app/features/persons/list.go
package persons

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dalemusser/memberhub/internal/app/store/queries/personlist"
	"github.com/dalemusser/memberhub/internal/app/system/csvutil"
	"github.com/dalemusser/memberhub/internal/app/system/format"
	"github.com/dalemusser/memberhub/internal/app/system/paging"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// filteredRows loads the cached table and applies the request's filter
// and order.
func (h *Handler) filteredRows(ctx context.Context, r *http.Request) ([]personlist.Row, personlist.Filter, personlist.Order, error) {
	all, err := h.List.Rows(ctx)
	if err != nil {
		return nil, personlist.Filter{}, personlist.Order{}, err
	}
	f := personlist.FilterFromRequest(r)
	o := personlist.OrderFromRequest(r)
	rows := personlist.Apply(all, f)
	personlist.Sort(rows, o)
	return rows, f, o, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /persons                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, f, o, err := h.filteredRows(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load persons list failed", err, "Could not load persons.", "/")
		return
	}
	orgs, err := h.Orgs.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list organizations failed", err, "Could not load persons.", "/")
		return
	}

	window, rng := paging.Page(rows, paging.ParseStart(r))
	data := listData{
		BaseVM:    viewdata.NewBaseVM(r, "Persons", "/"),
		Filter:    f,
		Page:      rng,
		ExportURL: "/persons.csv" + encodeQuery(r.URL.Query(), "start"),
	}
	for _, org := range orgs {
		data.Orgs = append(data.Orgs, orgOption{ID: org.ID.Hex(), Name: org.Name, Checked: org.ID.Hex() == f.OrgID})
	}
	for _, s := range []struct{ field, label string }{
		{personlist.SortName, "Name"},
		{personlist.SortEmail, "Email"},
		{personlist.SortOrgs, "Organizations"},
		{personlist.SortCreated, "Created"},
	} {
		link := sortLink{Label: s.label, Active: o.Field == s.field, Desc: o.Desc}
		q := r.URL.Query()
		q.Del("start")
		q.Set("sort", s.field)
		if link.Active && !o.Desc {
			q.Set("dir", "desc")
		} else {
			q.Del("dir")
		}
		link.URL = listURL + "?" + q.Encode()
		data.Sorts = append(data.Sorts, link)
	}
	if rng.HasPrev {
		data.PrevURL = pageURL(r, rng.PrevStart)
	}
	if rng.HasNext {
		data.NextURL = pageURL(r, rng.NextStart)
	}
	for _, row := range window {
		data.Rows = append(data.Rows, listRow{
			ID:      row.ID.Hex(),
			Name:    row.Name,
			Email:   row.Email,
			Phone:   row.Phone,
			Status:  row.Status,
			LoginID: row.LoginID,
			Admin:   row.Admin,
			Orgs:    strings.Join(row.OrgNames, ", "),
			Created: format.Date(&row.CreatedAt),
		})
	}
	templates.Render(w, r, "person_list", data)
}

func pageURL(r *http.Request, start int) string {
	q := r.URL.Query()
	q.Set("start", strconv.Itoa(start))
	return listURL + "?" + q.Encode()
}

// encodeQuery renders q without the dropped keys, with a leading "?" when
// anything is left.
func encodeQuery(q url.Values, drop ...string) string {
	for _, k := range drop {
		q.Del(k)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /persons.csv                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeCSV exports the filtered, sorted list without paging.
func (h *Handler) ServeCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rows, _, _, err := h.filteredRows(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load persons list failed", err, "Could not export persons.", listURL)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="persons.csv"`)
	if err := csvutil.WritePersons(w, rows); err != nil {
		// Headers are gone; all that is left is to log.
		h.Log.Error("write persons csv failed", zap.Error(err), zap.Int("rows", len(rows)))
	}
}
