// internal/app/features/login/handler.go
package login

// Terminology:
//   - personID: the MongoDB ObjectID of the person record
//   - loginID: the human-readable string people type to sign in (usually an email)

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/memberhub/internal/app/features/errors"
	"github.com/dalemusser/memberhub/internal/app/store/audit"
	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/system/auditlog"
	"github.com/dalemusser/memberhub/internal/app/system/auth"
	"github.com/dalemusser/memberhub/internal/app/system/authutil"
	"github.com/dalemusser/memberhub/internal/app/system/ratelimit"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/app/system/viewdata"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// genericFailure is shown for unknown login ids and wrong passwords alike.
const genericFailure = "Invalid login or password."

type Handler struct {
	Persons    *personstore.Store
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.LoginLimiter
}

type loginFormData struct {
	viewdata.BaseVM
	Error     string
	LoginID   string
	ReturnURL string
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Persons:    personstore.New(db),
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   audit,
		Limiter:    ratelimit.NewLoginLimiter(),
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Sign in", "/"),
		ReturnURL: query.Get(r, "return"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	loginID := strings.TrimSpace(r.FormValue("login_id"))
	password := r.FormValue("password")
	ret := strings.TrimSpace(r.FormValue("return"))
	if loginID == "" || password == "" {
		h.renderFormWithError(w, r, "Please enter your login and password.", loginID, ret)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if ok, reason := h.Limiter.Check(r, loginID); !ok {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedRateLimited, nil, loginID, "rate limited")
		h.renderFormWithError(w, r, reason, loginID, ret)
		return
	}

	p, err := h.Persons.GetByLoginID(ctx, loginID)
	switch {
	case errors.Is(err, personstore.ErrNotFound):
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, nil, loginID, "no person with this login")
		h.renderFormWithError(w, r, genericFailure, loginID, ret)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "find person by login failed", err, "A server error occurred.", "/login")
		return
	}

	if p.Status == models.StatusDisabled {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserDisabled, &p.ID, loginID, "person disabled")
		h.renderFormWithError(w, r, "Your account is disabled. Please contact an administrator.", loginID, ret)
		return
	}

	if p.PasswordHash == nil || !authutil.CheckPassword(password, *p.PasswordHash) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, &p.ID, loginID, "wrong password")
		h.renderFormWithError(w, r, genericFailure, loginID, ret)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, p.ID.Hex()); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("person_id", p.ID.Hex()))
		h.renderFormWithError(w, r, "Unable to create session. Please try again.", loginID, ret)
		return
	}
	h.Limiter.Succeeded(loginID)
	h.AuditLog.LoginSuccess(ctx, r, p.ID, loginID)

	home := "/me"
	if p.HasRole(models.RoleAdmin) {
		home = "/persons"
	}
	http.Redirect(w, r, urlutil.SafeReturn(ret, "", home), http.StatusSeeOther)
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, msg, loginID, ret string) {
	templates.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Sign in", "/"),
		Error:     msg,
		LoginID:   loginID,
		ReturnURL: ret,
	})
}
