// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/memberhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("persons", personsSchema())
	ensure("organizations", orgsSchema())
	ensure("memberships", membershipsSchema())
	ensure("payment_details", paymentDetailsSchema())
	ensure("payment_infos", paymentInfosSchema())
	ensure("person_relations", relationsSchema())

	ensure("addresses", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	integer  = bson.M{"bsonType": bson.A{"int", "long"}}
)

func personsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name_ci", "status"},
			"properties": bson.M{
				"first_name":   bson.M{"bsonType": "string"},
				"last_name":    bson.M{"bsonType": "string"},
				"full_name_ci": nonBlank,
				"email":        bson.M{"bsonType": "string"},
				"login_id":     bson.M{"bsonType": "string"},
				"login_id_ci":  bson.M{"bsonType": "string"},
				"roles":        bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"enum": bson.A{models.RoleAdmin, models.RoleMember}}},
				"status":       bson.M{"enum": bson.A{models.StatusActive, models.StatusDisabled}},
			},
		},
	}
}

func orgsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "status"},
			"properties": bson.M{
				"name":    nonBlank,
				"name_ci": nonBlank,
				"status":  bson.M{"enum": bson.A{models.StatusActive, models.StatusDisabled}},
			},
		},
	}
}

// Memberships must carry an explicit active flag. organization_id may be
// null on legacy rows.
func membershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"person_id", "active", "created_at"},
			"properties": bson.M{
				"person_id":       bson.M{"bsonType": "objectId"},
				"organization_id": bson.M{"bsonType": bson.A{"objectId", "null"}},
				"active":          bson.M{"bsonType": "bool"},
				"end_date":        bson.M{"bsonType": "date"},
				"end_reason":      bson.M{"bsonType": "string"},
				"created_at":      bson.M{"bsonType": "date"},
			},
		},
	}
}

func paymentDetailsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"organization_id", "year", "amount", "deleted"},
			"properties": bson.M{
				"organization_id": bson.M{"bsonType": "objectId"},
				"year":            integer,
				"amount":          integer,
				"late_fee":        integer,
				"deadline":        bson.M{"bsonType": "date"},
				"deleted":         bson.M{"bsonType": "bool"},
			},
		},
	}
}

func paymentInfosSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"membership_id", "payment_detail_id", "person_id", "state"},
			"properties": bson.M{
				"membership_id":     bson.M{"bsonType": "objectId"},
				"payment_detail_id": bson.M{"bsonType": "objectId"},
				"person_id":         bson.M{"bsonType": "objectId"},
				"amount_paid":       integer,
				"state":             bson.M{"enum": bson.A{models.PaymentPaid, models.PaymentUnpaid}},
			},
		},
	}
}

func relationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"pair_id", "person_id", "related_id", "kind"},
			"properties": bson.M{
				"pair_id":    bson.M{"bsonType": "objectId"},
				"person_id":  bson.M{"bsonType": "objectId"},
				"related_id": bson.M{"bsonType": "objectId"},
				"kind": bson.M{"enum": bson.A{
					models.RelationParent, models.RelationKid, models.RelationSpouse,
					models.RelationSibling, models.RelationOther,
				}},
				"can_access": bson.M{"bsonType": "bool"},
			},
		},
	}
}
