package api

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/authlog"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/errors"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/jwks"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/keypair"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/keypool"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/register"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/token"
)

// Handle serves the HTTP endpoints
type Handle struct {
	keys            *keypool.Service
	issuer          *token.Issuer
	registerService *register.Service
	authLog         authlog.Repository
	strictAuth      bool
}

// Option is a function that configures a Handle
type Option func(*Handle)

// WithKeyService sets the key pool service for the handle
func WithKeyService(service *keypool.Service) Option {
	return func(h *Handle) {
		h.keys = service
	}
}

// WithIssuer sets the token issuer for the handle
func WithIssuer(issuer *token.Issuer) Option {
	return func(h *Handle) {
		h.issuer = issuer
	}
}

// WithRegisterService sets the registration service for the handle
func WithRegisterService(service *register.Service) Option {
	return func(h *Handle) {
		h.registerService = service
	}
}

// WithAuthLog sets the auth log repository for the handle
func WithAuthLog(repository authlog.Repository) Option {
	return func(h *Handle) {
		h.authLog = repository
	}
}

// WithStrictAuth makes POST /auth reject invalid credentials with 401
// instead of falling back to the signing key's kid as the subject.
func WithStrictAuth(strict bool) Option {
	return func(h *Handle) {
		h.strictAuth = strict
	}
}

// NewHandle creates a new handle
func NewHandle(opts ...Option) *Handle {
	h := &Handle{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetJWKS handles GET /.well-known/jwks.json
func (h *Handle) GetJWKS(w http.ResponseWriter, r *http.Request) {
	now, err := keypair.NowUnix()
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	keys, err := h.keys.View(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, jwks.Project(keys, now))
}

// Auth handles POST /auth. The expired query parameter selects whether
// the token is signed with a valid or an already-expired key. The
// response body is the signed JWT as plain text.
func (h *Handle) Auth(w http.ResponseWriter, r *http.Request) {
	wantExpired := false
	if raw := r.URL.Query().Get("expired"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.renderError(w, r, errors.Newf(errors.ErrCodeInvalidInput, "invalid expired parameter: %q", raw))
			return
		}
		wantExpired = v
	}

	// Credentials are optional. When supplied and valid, the username
	// becomes the token subject.
	var subject string
	var creds AuthRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&creds)
	}
	if creds.Username != "" && creds.Password != "" && h.registerService != nil {
		user, err := h.registerService.Authenticate(r.Context(), creds.Username, creds.Password)
		if err != nil {
			if h.strictAuth {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, ErrorResponse{Error: "UNAUTHORIZED", Message: "invalid username or password"})
				return
			}
			slog.Warn("Credential check failed, issuing with default subject", "username", creds.Username)
		} else {
			subject = user.Username
		}
	}

	kp, err := h.keys.SelectForIssue(r.Context(), wantExpired)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	signed, err := h.issuer.Issue(kp, subject)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	authlog.RecordBestEffort(r.Context(), h.authLog, &authlog.Entry{
		RequestIP: clientIP(r),
		Subject:   subject,
		Kid:       kp.Kid,
		Expired:   wantExpired,
		Timestamp: time.Now().UTC(),
	})

	render.PlainText(w, r, signed)
}

// CreateKeyPair handles GET /create-key-pair. Both parameters are
// optional: key_size falls back to the configured strength and
// expiry_duration (seconds, may be negative) defaults to one hour.
func (h *Handle) CreateKeyPair(w http.ResponseWriter, r *http.Request) {
	keySize := 0
	if raw := r.URL.Query().Get("key_size"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			h.renderError(w, r, errors.Newf(errors.ErrCodeInvalidInput, "invalid key_size parameter: %q", raw))
			return
		}
		keySize = int(v)
	}

	offsetSeconds := int64(3600)
	if raw := r.URL.Query().Get("expiry_duration"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.renderError(w, r, errors.Newf(errors.ErrCodeInvalidInput, "invalid expiry_duration parameter: %q", raw))
			return
		}
		offsetSeconds = v
	}

	kp, err := h.keys.CreateKey(r.Context(), keySize, offsetSeconds)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	var response KeyPairResponse
	copier.Copy(&response, kp)
	response.Alg = "RS256"
	response.PublicKeyPEM = keypair.EncodePublicKeyToPEM(kp.PublicKey)

	render.JSON(w, r, response)
}

// Register handles POST /register
func (h *Handle) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderError(w, r, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	user, password, err := h.registerService.Register(r.Context(), req.Username, req.Email)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, RegisterResponse{
		ID:       user.ID,
		Username: user.Username,
		Password: password,
	})
}

// Index handles GET /
func (h *Handle) Index(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, "JWKS server. Keys are published at /.well-known/jwks.json")
}

// Healthz handles GET /healthz
func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, "ok")
}

// renderError maps a structured error to its HTTP status and JSON body
func (h *Handle) renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := errors.MapErrorCodeToHTTPStatus(code)

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "code", code, "err", err)
	} else {
		slog.Warn("Request rejected", "path", r.URL.Path, "code", code, "err", err)
	}

	message := err.Error()
	var structured *errors.Error
	if stderrors.As(err, &structured) {
		message = structured.Message
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: string(code), Message: message})
}

// clientIP extracts the client IP address from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}

	return addr
}
