package personview

import (
	"testing"
	"time"

	"github.com/dalemusser/memberhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuild_Payments(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	future := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	org := models.Organization{ID: primitive.NewObjectID(), Name: "Chess Club"}
	m := models.Membership{ID: primitive.NewObjectID(), PersonID: primitive.NewObjectID(), OrganizationID: &org.ID, Active: true, CreatedAt: past}
	paid := models.PaymentDetail{ID: primitive.NewObjectID(), OrganizationID: org.ID, Year: 2025, Amount: 2000}
	late := models.PaymentDetail{ID: primitive.NewObjectID(), OrganizationID: org.ID, Year: 2026, Amount: 2500, LateFee: 500, Deadline: &past}
	open := models.PaymentDetail{ID: primitive.NewObjectID(), OrganizationID: org.ID, Year: 2027, Amount: 3000, Deadline: &future}

	d := models.PersonDetail{
		Person: models.Person{ID: m.PersonID, FirstName: "Ada", LastName: "Lovelace", Status: models.StatusActive},
		Active: []models.MembershipDetail{{
			Membership:     m,
			Organization:   &org,
			PaymentDetails: []models.PaymentDetail{paid, late, open},
		}},
		PaymentInfos: []models.PaymentInfo{{
			MembershipID: m.ID, PaymentDetailID: paid.ID, State: models.PaymentPaid, AmountPaid: 2000, PaidAt: &past,
		}},
	}

	v := Build(d, now)
	if len(v.Active) != 1 {
		t.Fatalf("Active = %d rows", len(v.Active))
	}
	pays := v.Active[0].Payments
	tests := []struct {
		year    int
		paid    bool
		overdue bool
		due     string
	}{
		{2027, false, false, "30,00 €"},
		{2026, false, true, "30,00 €"}, // late fee applies
		{2025, true, false, "20,00 €"},
	}
	if len(pays) != len(tests) {
		t.Fatalf("payments = %d, want %d", len(pays), len(tests))
	}
	for i, tt := range tests {
		p := pays[i]
		if p.Year != tt.year || p.Paid != tt.paid || p.Overdue != tt.overdue || p.Due != tt.due {
			t.Errorf("payment[%d] = {year %d paid %v overdue %v due %q}, want %+v", i, p.Year, p.Paid, p.Overdue, p.Due, tt)
		}
	}
	if v.Outstanding != "60,00 €" || !v.HasUnpaid {
		t.Errorf("Outstanding = %q, HasUnpaid = %v", v.Outstanding, v.HasUnpaid)
	}
	if pays[2].PaidAt != "2026-03-31" {
		t.Errorf("PaidAt = %q", pays[2].PaidAt)
	}
}

func TestBuild_DanglingOrganizationAndAddress(t *testing.T) {
	m := models.Membership{ID: primitive.NewObjectID(), Active: false}
	d := models.PersonDetail{
		Person:   models.Person{ID: primitive.NewObjectID(), LastName: "Solo", Status: models.StatusDisabled},
		Inactive: []models.MembershipDetail{{Membership: m}},
		Address:  &models.Address{},
	}
	v := Build(d, time.Now())

	if !v.Disabled || v.Name != "Solo" {
		t.Errorf("Disabled = %v, Name = %q", v.Disabled, v.Name)
	}
	if len(v.Inactive) != 1 || v.Inactive[0].OrgName != "(unknown organization)" {
		t.Errorf("Inactive = %+v", v.Inactive)
	}
	if v.Address != nil {
		t.Error("blank address should be hidden")
	}
	if v.Outstanding != "0,00 €" || v.HasUnpaid {
		t.Errorf("Outstanding = %q", v.Outstanding)
	}
}
