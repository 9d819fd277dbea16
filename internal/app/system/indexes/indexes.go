// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// collectionIndexes lists the desired indexes per collection, in the order
// they are ensured.
func collectionIndexes() []struct {
	coll   string
	models []mongo.IndexModel
} {
	return []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{"persons", []mongo.IndexModel{
			{Keys: bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
				Options: options.Index().SetName("idx_persons_fullnameci__id")},
			{Keys: bson.D{{Key: "login_id_ci", Value: 1}},
				Options: options.Index().SetName("uniq_persons_loginidci").SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "email_ci", Value: 1}},
				Options: options.Index().SetName("idx_persons_emailci")},
		}},
		{"organizations", []mongo.IndexModel{
			{Keys: bson.D{{Key: "name_ci", Value: 1}},
				Options: options.Index().SetName("uniq_orgs_nameci").SetUnique(true)},
		}},
		// Only active rows are unique per person and organization; inactive
		// historical duplicates are tolerated and resolved when reactivating.
		{"memberships", []mongo.IndexModel{
			{Keys: bson.D{{Key: "person_id", Value: 1}, {Key: "organization_id", Value: 1}},
				Options: options.Index().SetName("uniq_memberships_person_org_active").SetUnique(true).
					SetPartialFilterExpression(bson.M{"active": true, "organization_id": bson.M{"$type": "objectId"}})},
			{Keys: bson.D{{Key: "person_id", Value: 1}, {Key: "created_at", Value: 1}},
				Options: options.Index().SetName("idx_memberships_person_created")},
			{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "active", Value: 1}},
				Options: options.Index().SetName("idx_memberships_org_active")},
		}},
		{"payment_details", []mongo.IndexModel{
			{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "year", Value: 1}},
				Options: options.Index().SetName("idx_paydetails_org_year")},
		}},
		{"payment_infos", []mongo.IndexModel{
			{Keys: bson.D{{Key: "membership_id", Value: 1}, {Key: "payment_detail_id", Value: 1}},
				Options: options.Index().SetName("uniq_payinfos_membership_detail").SetUnique(true)},
			{Keys: bson.D{{Key: "person_id", Value: 1}},
				Options: options.Index().SetName("idx_payinfos_person")},
		}},
		{"addresses", []mongo.IndexModel{
			{Keys: bson.D{{Key: "person_id", Value: 1}},
				Options: options.Index().SetName("uniq_addresses_person").SetUnique(true)},
		}},
		{"person_relations", []mongo.IndexModel{
			{Keys: bson.D{{Key: "person_id", Value: 1}, {Key: "related_id", Value: 1}},
				Options: options.Index().SetName("uniq_relations_person_related").SetUnique(true)},
			{Keys: bson.D{{Key: "pair_id", Value: 1}},
				Options: options.Index().SetName("idx_relations_pair")},
		}},
		{"audit_events", []mongo.IndexModel{
			{Keys: bson.D{{Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("idx_audit_ts")},
			{Keys: bson.D{{Key: "person_id", Value: 1}, {Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("idx_audit_person_ts")},
			{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("idx_audit_org_ts")},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("idx_audit_cat_type_ts")},
		}},
	}
}

/*
EnsureAll is called at startup and by memberhubctl. Each collection is
ensured independently; problems are aggregated so all of them are visible
and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, ci := range collectionIndexes() {
		if err := ensureIndexSet(ctx, db.Collection(ci.coll), ci.models); err != nil {
			problems = append(problems, ci.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
	Sparse *bool  `bson:"sparse,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolOf(p *bool) bool { return p != nil && *p }

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate key")
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet makes coll carry exactly the desired key patterns with the
// desired names and unique/sparse options. A matching index under another
// name or with other options is dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A collection that does not exist yet has no indexes.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		name := *m.Options.Name
		unique, sparse := boolOf(m.Options.Unique), boolOf(m.Options.Sparse)
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if ex.Name == name && boolOf(ex.Unique) == unique && boolOf(ex.Sparse) == sparse {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name))
				continue
			}
			zap.L().Info("replacing index",
				zap.String("collection", coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name),
				zap.String("keys", sig))
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if unique && isDuplicateKeyErr(err) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
