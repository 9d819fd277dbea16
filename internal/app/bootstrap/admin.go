// internal/app/bootstrap/admin.go
package bootstrap

import (
	"context"
	"errors"

	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/system/authutil"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// AdminOutcome says what EnsureAdmin did.
type AdminOutcome string

const (
	AdminCreated  AdminOutcome = "created"
	AdminPromoted AdminOutcome = "promoted"
	AdminPresent  AdminOutcome = "present"
	AdminSkipped  AdminOutcome = "skipped"
)

// EnsureAdmin makes the person signing in as loginID an active admin. An
// existing person is promoted and keeps their password. A missing one is
// created only when password is given.
func EnsureAdmin(ctx context.Context, db *mongo.Database, loginID, password string, logger *zap.Logger) (AdminOutcome, error) {
	lid, _, err := authutil.NormalizeLoginID(loginID)
	if err != nil {
		return "", err
	}
	persons := personstore.New(db)

	p, err := persons.GetByLoginID(ctx, lid)
	switch {
	case err == nil:
		if p.HasRole(models.RoleAdmin) && p.Status == models.StatusActive {
			return AdminPresent, nil
		}
		if err := persons.GrantAdmin(ctx, p.ID); err != nil {
			return "", err
		}
		logger.Info("promoted bootstrap admin", zap.String("login_id", lid), zap.String("person_id", p.ID.Hex()))
		return AdminPromoted, nil
	case !errors.Is(err, personstore.ErrNotFound):
		return "", err
	}

	if password == "" {
		logger.Warn("bootstrap admin missing and no password configured", zap.String("login_id", lid))
		return AdminSkipped, nil
	}
	if err := authutil.ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := authutil.HashPassword(password)
	if err != nil {
		return "", err
	}
	created, err := persons.Insert(ctx, models.Person{
		FirstName:    "Site",
		LastName:     "Administrator",
		Email:        lid,
		LoginID:      &lid,
		PasswordHash: &hash,
		Roles:        []string{models.RoleAdmin},
	})
	if err != nil {
		return "", err
	}
	logger.Info("created bootstrap admin", zap.String("login_id", lid), zap.String("person_id", created.ID.Hex()))
	return AdminCreated, nil
}
