// Package personview turns a PersonDetail into display rows shared by the
// admin person page and the self-service page. Dates and amounts are
// preformatted so templates stay free of helpers.
package personview

import (
	"sort"
	"time"

	"github.com/dalemusser/memberhub/internal/app/system/format"
	"github.com/dalemusser/memberhub/internal/domain/models"
)

// Payment is the state of one scheduled due for one membership.
type Payment struct {
	MembershipID string
	DetailID     string
	Year         int
	Due          string
	Deadline     string
	Paid         bool
	AmountPaid   string
	PaidAt       string
	// Overdue is set for unpaid dues whose deadline has passed.
	Overdue bool
	// dueCents is the unformatted amount due, used for the outstanding total.
	dueCents int64
}

type Membership struct {
	ID        string
	OrgID     string
	OrgName   string
	Active    bool
	Since     string
	Ended     string
	EndReason string
	Payments  []Payment
}

type Relation struct {
	ID          string
	RelatedID   string
	RelatedName string
	Kind        string
	CanAccess   bool
	Note        string
}

type Address struct {
	Street     string
	PostalCode string
	City       string
	Country    string
}

// View is the display form of a person.
type View struct {
	ID        string
	Name      string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	BirthDate string
	Notes     string
	Status    string
	Disabled  bool
	LoginID   string
	HasLogin  bool
	Admin     bool
	Created   string

	Active   []Membership
	Inactive []Membership

	Address   *Address
	Relations []Relation

	// Outstanding is the sum of unpaid dues on active memberships.
	Outstanding string
	HasUnpaid   bool
}

// Build converts d. now decides late fees and overdue flags.
func Build(d models.PersonDetail, now time.Time) View {
	p := d.Person
	v := View{
		ID:        p.ID.Hex(),
		Name:      p.FullName(),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		BirthDate: format.Date(p.BirthDate),
		Notes:     p.Notes,
		Status:    p.Status,
		Disabled:  p.Status == models.StatusDisabled,
		HasLogin:  p.HasLogin(),
		Admin:     p.HasRole(models.RoleAdmin),
		Created:   format.Date(&p.CreatedAt),
	}
	if p.LoginID != nil {
		v.LoginID = *p.LoginID
	}

	infos := make(map[[2]string]models.PaymentInfo, len(d.PaymentInfos))
	for _, pi := range d.PaymentInfos {
		infos[[2]string{pi.MembershipID.Hex(), pi.PaymentDetailID.Hex()}] = pi
	}

	var outstanding int64
	for _, md := range d.Active {
		m := membership(md, infos, now)
		for _, pay := range m.Payments {
			if !pay.Paid {
				outstanding += pay.dueCents
				v.HasUnpaid = true
			}
		}
		v.Active = append(v.Active, m)
	}
	for _, md := range d.Inactive {
		v.Inactive = append(v.Inactive, membership(md, infos, now))
	}
	sortByOrg(v.Active)
	sortByOrg(v.Inactive)
	v.Outstanding = format.Money(outstanding)

	if a := d.Address; a != nil && !a.IsEmpty() {
		v.Address = &Address{Street: a.Street, PostalCode: a.PostalCode, City: a.City, Country: a.Country}
	}
	for _, rd := range d.Relations {
		v.Relations = append(v.Relations, Relation{
			ID:          rd.Relation.ID.Hex(),
			RelatedID:   rd.Relation.RelatedID.Hex(),
			RelatedName: rd.RelatedName,
			Kind:        rd.Relation.Kind,
			CanAccess:   rd.Relation.CanAccess,
			Note:        rd.Relation.Note,
		})
	}
	return v
}

func membership(md models.MembershipDetail, infos map[[2]string]models.PaymentInfo, now time.Time) Membership {
	m := md.Membership
	out := Membership{
		ID:        m.ID.Hex(),
		OrgID:     m.OrgHex(),
		Active:    m.Active,
		Since:     format.Date(&m.CreatedAt),
		Ended:     format.Date(m.EndDate),
		EndReason: m.EndReason,
	}
	if md.Organization != nil {
		out.OrgName = md.Organization.Name
	} else {
		out.OrgName = "(unknown organization)"
	}
	for _, d := range md.PaymentDetails {
		due := d.AmountDue(now)
		pay := Payment{
			MembershipID: out.ID,
			DetailID:     d.ID.Hex(),
			Year:         d.Year,
			Due:          format.Money(due),
			Deadline:     format.Date(d.Deadline),
			dueCents:     due,
		}
		if pi, ok := infos[[2]string{out.ID, pay.DetailID}]; ok && pi.State == models.PaymentPaid {
			pay.Paid = true
			pay.AmountPaid = format.Money(pi.AmountPaid)
			pay.PaidAt = format.Date(pi.PaidAt)
		} else {
			pay.Overdue = d.Deadline != nil && now.After(*d.Deadline)
		}
		out.Payments = append(out.Payments, pay)
	}
	sort.SliceStable(out.Payments, func(i, j int) bool { return out.Payments[i].Year > out.Payments[j].Year })
	return out
}

func sortByOrg(ms []Membership) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].OrgName < ms[j].OrgName })
}
