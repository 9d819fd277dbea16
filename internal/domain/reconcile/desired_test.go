package reconcile_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/memberhub/internal/domain/reconcile"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseDesired(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	d, err := reconcile.ParseDesired([]string{
		a.Hex(),
		"  " + strings.ToUpper(b.Hex()) + " ",
		a.Hex(),
		"",
	})
	if err != nil {
		t.Fatalf("ParseDesired failed: %v", err)
	}
	if len(d) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(d))
	}
	if !d.Has(a.Hex()) || !d.Has(strings.ToUpper(b.Hex())) {
		t.Errorf("expected both ids to match regardless of case: %v", d)
	}
}

func TestParseDesired_Invalid(t *testing.T) {
	tests := []string{"42", "not-an-id", "000000000000000000000000"}
	for _, v := range tests {
		t.Run(v, func(t *testing.T) {
			_, err := reconcile.ParseDesired([]string{v})
			var ve *reconcile.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError for %q, got %v", v, err)
			}
		})
	}
}

func TestDesired_IDsSorted(t *testing.T) {
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}
	d := reconcile.DesiredOf(ids[2], ids[0], ids[1])
	got := d.IDs()
	for i := 1; i < len(got); i++ {
		if got[i-1].Hex() > got[i].Hex() {
			t.Fatalf("IDs not sorted: %v", got)
		}
	}
}
