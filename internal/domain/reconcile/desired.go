package reconcile

import (
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Desired is the set of organizations a person should belong to, keyed by
// lowercase hex id.
type Desired map[string]primitive.ObjectID

// ParseDesired normalizes raw form values into a Desired set. Blank values are
// ignored and duplicates collapse. A value that is not an organization id is a
// ValidationError.
func ParseDesired(values []string) (Desired, error) {
	d := make(Desired, len(values))
	for _, raw := range values {
		v := strings.ToLower(strings.TrimSpace(raw))
		if v == "" {
			continue
		}
		oid, err := primitive.ObjectIDFromHex(v)
		if err != nil || oid.IsZero() {
			return nil, &ValidationError{Field: "organizations", Value: raw, Reason: "not a valid organization id"}
		}
		d[oid.Hex()] = oid
	}
	return d, nil
}

// DesiredOf builds a Desired set from ids.
func DesiredOf(ids ...primitive.ObjectID) Desired {
	d := make(Desired, len(ids))
	for _, id := range ids {
		d[id.Hex()] = id
	}
	return d
}

// Has reports whether the organization with the given hex id is desired.
func (d Desired) Has(orgHex string) bool {
	_, ok := d[strings.ToLower(orgHex)]
	return ok
}

// IDs returns the desired ids sorted by hex.
func (d Desired) IDs() []primitive.ObjectID {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]primitive.ObjectID, 0, len(keys))
	for _, k := range keys {
		out = append(out, d[k])
	}
	return out
}
