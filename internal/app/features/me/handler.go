// internal/app/features/me/handler.go
package me

import (
	uierrors "github.com/dalemusser/memberhub/internal/app/features/errors"
	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	relationstore "github.com/dalemusser/memberhub/internal/app/store/relations"
	"github.com/dalemusser/memberhub/internal/app/store/queries/persondetail"
	"github.com/dalemusser/memberhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the signed-in person's own pages.
type Handler struct {
	Persons   *personstore.Store
	Relations *relationstore.Store
	Details   *persondetail.Loader
	ErrLog    *uierrors.ErrorLogger
	AuditLog  *auditlog.Logger
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, details *persondetail.Loader, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Persons:   personstore.New(db),
		Relations: relationstore.New(db, logger),
		Details:   details,
		ErrLog:    errLog,
		AuditLog:  audit,
		Log:       logger,
	}
}

const homeURL = "/me"
