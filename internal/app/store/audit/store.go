// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth       = "auth"
	CategoryAdmin      = "admin"
	CategoryMembership = "membership"
)

// Auth event types
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedUserDisabled  = "login_failed_user_disabled"
	EventLoginFailedRateLimited   = "login_failed_rate_limited"
	EventLogout                   = "logout"
	EventPasswordChanged          = "password_changed"
)

// Admin event types
const (
	EventPersonCreated         = "person_created"
	EventPersonUpdated         = "person_updated"
	EventPersonDisabled        = "person_disabled"
	EventPersonEnabled         = "person_enabled"
	EventLoginSet              = "login_set"
	EventLoginRemoved          = "login_removed"
	EventAddressUpdated        = "address_updated"
	EventRelationAdded         = "relation_added"
	EventRelationRemoved       = "relation_removed"
	EventRelationAccessChanged = "relation_access_changed"
	EventOrgCreated            = "org_created"
	EventOrgUpdated            = "org_updated"
	EventOrgDeleted            = "org_deleted"
	EventPaymentDetailCreated  = "payment_detail_created"
	EventPaymentDetailUpdated  = "payment_detail_updated"
	EventPaymentDetailDeleted  = "payment_detail_deleted"
	EventPaymentMarked         = "payment_marked"
)

// Membership event types
const (
	EventMembershipJoined       = "membership_joined"
	EventMembershipLeft         = "membership_left"
	EventMembershipRejoined     = "membership_rejoined"
	EventReconcileAnomaly       = "reconcile_anomaly"
	EventReconcilePartialFailed = "reconcile_partial_failure"
)

// Event represents an audit event.
type Event struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty"`
	Timestamp      time.Time           `bson:"timestamp"`
	OrganizationID *primitive.ObjectID `bson:"organization_id,omitempty"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	PersonID *primitive.ObjectID `bson:"person_id,omitempty"` // affected person
	ActorID  *primitive.ObjectID `bson:"actor_id,omitempty"`  // who acted

	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter narrows Query. Zero fields are ignored.
type QueryFilter struct {
	OrganizationID *primitive.ObjectID
	PersonID       *primitive.ObjectID
	Category       string
	EventType      string
	Since          *time.Time
	Limit          int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log inserts event, stamping Timestamp when unset.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns events matching f, newest first.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Event, error) {
	filter := bson.M{}
	if f.OrganizationID != nil {
		filter["organization_id"] = *f.OrganizationID
	}
	if f.PersonID != nil {
		filter["person_id"] = *f.PersonID
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.EventType != "" {
		filter["event_type"] = f.EventType
	}
	if f.Since != nil {
		filter["timestamp"] = bson.M{"$gte": *f.Since}
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Event
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByPerson returns the most recent events affecting personID.
func (s *Store) GetByPerson(ctx context.Context, personID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{PersonID: &personID, Limit: limit})
}

// GetRecent returns the most recent events of any kind.
func (s *Store) GetRecent(ctx context.Context, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{Limit: limit})
}
