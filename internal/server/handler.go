package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prithuhomes/customerportal/internal/contact"
	"github.com/prithuhomes/customerportal/internal/odata"
	"github.com/prithuhomes/customerportal/internal/portal"
	"github.com/prithuhomes/customerportal/internal/servicetoken"
	"github.com/prithuhomes/customerportal/internal/trust"
)

// Client-facing messages
const (
	msgMissingAuthorization = "Missing Authorization header."
	msgNotBearer            = "Authorization header must be a Bearer token."
	msgTokenInvalid         = "Token validation failed."
	msgClaimsMissing        = "Required token claims are missing."
	msgServiceToken         = "Failed to acquire Dataverse access token."
	msgNotCustomer          = "User is authenticated but not authorized for customer data."
	msgUnexpected           = "An unexpected error occurred while processing the request."
)

// ContactResolver maps an authenticated user to a contact id
type ContactResolver interface {
	Resolve(ctx context.Context, token, objectID, email string) (string, error)
}

// PortalService answers requests for a resolved contact
type PortalService interface {
	Handle(ctx context.Context, req portal.Request) (*portal.Response, error)
}

// HandlerConfig contains the collaborators of the portal handler
type HandlerConfig struct {
	Validator trust.Validator

	// RequiredRole is checked after validation; blank disables the check
	RequiredRole string

	Tokens   servicetoken.Acquirer
	Contacts ContactResolver
	Portal   PortalService

	// Observer defaults to NoopObserver
	Observer Observer
	Logger   *slog.Logger
}

// Handler runs the portal request pipeline: bearer token validation, role
// and identity checks, service token acquisition, contact resolution, then
// entity dispatch.
type Handler struct {
	validator    trust.Validator
	requiredRole string
	tokens       servicetoken.Acquirer
	contacts     ContactResolver
	portal       PortalService
	observer     Observer
	logger       *slog.Logger
}

// NewHandler creates the portal handler
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("service token acquirer is required")
	}
	if cfg.Contacts == nil {
		return nil, fmt.Errorf("contact resolver is required")
	}
	if cfg.Portal == nil {
		return nil, fmt.Errorf("portal service is required")
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NoopObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		validator:    cfg.Validator,
		requiredRole: strings.TrimSpace(cfg.RequiredRole),
		tokens:       cfg.Tokens,
		contacts:     cfg.Contacts,
		portal:       cfg.Portal,
		observer:     observer,
		logger:       logger,
	}, nil
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("entity")
	ctx, probe := h.observer.RequestStarted(r.Context(), RequestInfo{
		RequestID: RequestIDFromContext(r.Context()),
		Method:    r.Method,
		Path:      r.URL.Path,
		Entity:    entity,
	})
	defer probe.End()

	token, msg := bearerToken(r)
	if msg != "" {
		probe.TokenRejected("missing_bearer", nil)
		writeError(w, http.StatusUnauthorized, msg)
		return
	}

	result, err := h.validator.Validate(ctx, token)
	if err != nil {
		probe.TokenRejected(rejectionReason(err), err)
		writeError(w, http.StatusUnauthorized, msgTokenInvalid)
		return
	}

	if h.requiredRole != "" {
		if err := trust.RequireRole(result, h.requiredRole); err != nil {
			probe.RoleMissing(h.requiredRole)
			writeError(w, http.StatusForbidden,
				fmt.Sprintf("User is authenticated but does not have required role '%s'.", h.requiredRole))
			return
		}
	}

	if err := trust.RequireIdentity(result); err != nil {
		probe.IdentityMissing()
		writeError(w, http.StatusUnauthorized, msgClaimsMissing)
		return
	}

	serviceToken, err := h.tokens.Token(ctx)
	if err != nil || serviceToken == "" {
		probe.ServiceTokenFailed(err)
		writeError(w, http.StatusInternalServerError, msgServiceToken)
		return
	}

	contactID, err := h.contacts.Resolve(ctx, serviceToken, result.ObjectID, result.Email)
	if errors.Is(err, contact.ErrNotFound) {
		probe.ContactNotFound(result.ObjectID)
		writeError(w, http.StatusForbidden, msgNotCustomer)
		return
	}
	if err != nil {
		status, message := statusFor(err)
		probe.RequestFailed(status, err)
		writeError(w, status, message)
		return
	}
	probe.ContactResolved(result.ObjectID, contactID)

	resp, err := h.portal.Handle(ctx, portal.Request{
		ContactID:    contactID,
		ServiceToken: serviceToken,
		Entity:       entity,
		Method:       r.Method,
		Body:         r.Body,
	})
	if err != nil {
		status, message := statusFor(err)
		probe.RequestFailed(status, err)
		writeError(w, status, message)
		return
	}

	probe.EntityServed(resp.Entity, resp.Count)
	writeJSON(w, http.StatusOK, resp.Body)
}

// bearerToken extracts the token from the Authorization header. A non-empty
// message means the header is absent or not a bearer credential.
func bearerToken(r *http.Request) (string, string) {
	values, present := r.Header["Authorization"]
	if !present || len(values) == 0 {
		return "", msgMissingAuthorization
	}
	token, ok := strings.CutPrefix(values[0], "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", msgNotBearer
	}
	return strings.TrimSpace(token), ""
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, trust.ErrPolicyMismatch):
		return "policy_mismatch"
	case errors.Is(err, trust.ErrExpiredToken):
		return "expired"
	default:
		return "invalid"
	}
}

// statusFor maps a pipeline error to a status and client message.
// Configuration and data platform failures pass their message through.
func statusFor(err error) (int, string) {
	var (
		validation  *portal.ValidationError
		notAllowed  *portal.MethodNotAllowedError
		unsupported *portal.UnsupportedEntityError
		missing     *portal.MissingConfigError
		queryErr    *portal.QueryError
		statusErr   *odata.StatusError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.As(err, &notAllowed):
		return http.StatusMethodNotAllowed, notAllowed.Error()
	case errors.As(err, &unsupported):
		return http.StatusBadRequest, unsupported.Error()
	case errors.Is(err, portal.ErrNotAuthorized),
		errors.Is(err, portal.ErrProjectSpaceNotFound),
		errors.Is(err, portal.ErrProjectSpaceUnlinked):
		return http.StatusForbidden, err.Error()
	case errors.As(err, &missing):
		return http.StatusInternalServerError, missing.Error()
	case errors.As(err, &queryErr),
		errors.As(err, &statusErr),
		errors.Is(err, contact.ErrLinkFailed):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, msgUnexpected
	}
}

// ErrorBody is the JSON error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the HTTP status code and a message
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: status, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
