package personstore

import (
	"context"

	"github.com/dalemusser/memberhub/internal/app/system/auth"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher on the persons collection.
type Fetcher struct {
	c *mongo.Collection
}

func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{c: db.Collection("persons")}
}

// FetchUser returns nil when the person is missing, disabled or has no login.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var p models.Person
	proj := options.FindOne().SetProjection(bson.M{
		"first_name": 1, "last_name": 1, "login_id": 1, "roles": 1, "status": 1,
	})
	if err := f.c.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&p); err != nil {
		return nil
	}
	if p.Status == models.StatusDisabled || !p.HasLogin() {
		return nil
	}
	return SessionUserOf(p)
}

// SessionUserOf maps a person to the session view. Admin wins over member.
func SessionUserOf(p models.Person) *auth.SessionUser {
	role := models.RoleMember
	if p.HasRole(models.RoleAdmin) {
		role = models.RoleAdmin
	}
	login := ""
	if p.LoginID != nil {
		login = *p.LoginID
	}
	return &auth.SessionUser{ID: p.ID.Hex(), Name: p.FullName(), LoginID: login, Role: role}
}
