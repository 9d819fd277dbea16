// Package personlist builds the admin persons table: one row per person with
// the names of the organizations they are an active member of. Rows are
// cached as a whole and filtered and sorted in memory.
package personlist

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	membershipstore "github.com/dalemusser/memberhub/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/system/cache"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Row is one line of the persons table.
type Row struct {
	ID        primitive.ObjectID   `json:"id"`
	Name      string               `json:"name"`
	NameCI    string               `json:"name_ci"`
	Email     string               `json:"email"`
	EmailCI   string               `json:"email_ci"`
	Phone     string               `json:"phone"`
	Status    string               `json:"status"`
	LoginID   string               `json:"login_id"`
	Admin     bool                 `json:"admin"`
	OrgIDs    []primitive.ObjectID `json:"org_ids"`
	OrgNames  []string             `json:"org_names"`
	CreatedAt time.Time            `json:"created_at"`
}

type Loader struct {
	persons     *personstore.Store
	memberships *membershipstore.Store
	orgs        *organizationstore.Store
	cache       cache.Cache
	ttl         time.Duration
	log         *zap.Logger
}

func NewLoader(db *mongo.Database, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		persons:     personstore.New(db),
		memberships: membershipstore.New(db),
		orgs:        organizationstore.New(db),
		cache:       c,
		ttl:         ttl,
		log:         logger,
	}
}

// Rows returns every person, sorted by name.
func (l *Loader) Rows(ctx context.Context) ([]Row, error) {
	return cache.Fetch(ctx, l.cache, cache.PersonsListKey, l.ttl, l.log, l.load)
}

func (l *Loader) load(ctx context.Context) ([]Row, error) {
	persons, err := l.persons.List(ctx)
	if err != nil {
		return nil, err
	}
	active, err := l.memberships.ActiveOrgsByPerson(ctx)
	if err != nil {
		return nil, err
	}
	orgs, err := l.orgs.List(ctx)
	if err != nil {
		return nil, err
	}
	orgNames := make(map[primitive.ObjectID]string, len(orgs))
	for _, o := range orgs {
		orgNames[o.ID] = o.Name
	}

	rows := make([]Row, 0, len(persons))
	for _, p := range persons {
		row := Row{
			ID:        p.ID,
			Name:      p.FullName(),
			NameCI:    p.FullNameCI,
			Email:     p.Email,
			EmailCI:   p.EmailCI,
			Phone:     p.Phone,
			Status:    p.Status,
			Admin:     p.HasRole(models.RoleAdmin),
			CreatedAt: p.CreatedAt,
		}
		if p.LoginID != nil {
			row.LoginID = *p.LoginID
		}
		for _, oid := range active[p.ID] {
			name, ok := orgNames[oid]
			if !ok {
				continue
			}
			row.OrgIDs = append(row.OrgIDs, oid)
			row.OrgNames = append(row.OrgNames, name)
		}
		sort.Strings(row.OrgNames)
		rows = append(rows, row)
	}
	return rows, nil
}

// Filter narrows the table.
type Filter struct {
	Query      string // matched against folded name and email
	OrgID      string // hex; only active members of this organization
	Status     string // "", "active" or "disabled"
	ActiveOnly bool   // only persons with at least one active membership
	Login      string // "", "linked" or "none"
}

// FilterFromRequest reads q, org, status, active and login.
func FilterFromRequest(r *http.Request) Filter {
	f := Filter{
		Query:  query.Search(r, "q"),
		OrgID:  strings.ToLower(query.Get(r, "org")),
		Status: strings.ToLower(query.Get(r, "status")),
		Login:  strings.ToLower(query.Get(r, "login")),
	}
	switch strings.ToLower(query.Get(r, "active")) {
	case "1", "true", "on", "yes":
		f.ActiveOnly = true
	}
	return f
}

// Apply returns the rows matching f, keeping their order.
func Apply(rows []Row, f Filter) []Row {
	q := text.Fold(f.Query)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if q != "" && !strings.Contains(r.NameCI, q) && !strings.Contains(r.EmailCI, q) {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.ActiveOnly && len(r.OrgIDs) == 0 {
			continue
		}
		if f.OrgID != "" && !hasOrg(r, f.OrgID) {
			continue
		}
		switch f.Login {
		case "linked":
			if r.LoginID == "" {
				continue
			}
		case "none":
			if r.LoginID != "" {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func hasOrg(r Row, hex string) bool {
	for _, id := range r.OrgIDs {
		if id.Hex() == hex {
			return true
		}
	}
	return false
}

// Sort fields.
const (
	SortName    = "name"
	SortEmail   = "email"
	SortCreated = "created"
	SortOrgs    = "orgs"
)

// Order is a sort field and direction.
type Order struct {
	Field string
	Desc  bool
}

// OrderFromRequest reads sort and dir. Unknown fields sort by name.
func OrderFromRequest(r *http.Request) Order {
	o := Order{Field: strings.ToLower(query.Get(r, "sort"))}
	switch o.Field {
	case SortName, SortEmail, SortCreated, SortOrgs:
	default:
		o.Field = SortName
	}
	o.Desc = strings.EqualFold(query.Get(r, "dir"), "desc")
	return o
}

// Sort orders rows in place. Ties fall back to name, then id, so the order
// is stable across requests.
func Sort(rows []Row, o Order) {
	less := func(a, b Row) int {
		switch o.Field {
		case SortEmail:
			return strings.Compare(a.EmailCI, b.EmailCI)
		case SortCreated:
			return a.CreatedAt.Compare(b.CreatedAt)
		case SortOrgs:
			return len(a.OrgIDs) - len(b.OrgIDs)
		}
		return 0
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		c := less(a, b)
		if c == 0 {
			c = strings.Compare(a.NameCI, b.NameCI)
		}
		if c == 0 {
			c = strings.Compare(a.ID.Hex(), b.ID.Hex())
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	})
}
