package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MrSnakeDoc/noticeboard/internal/auth"
	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind"`
}

type messageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err as {"error", "kind"}. Storage failures are logged
// and their cause is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	kind := domain.KindOf(err)
	msg := err.Error()

	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	if kind == domain.KindStorageFailure {
		d.Logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err))
		if de == nil {
			msg = "internal error"
		}
	}

	writeJSON(w, statusFor(kind), errorResponse{Error: msg, Kind: kind})
}

// decodeJSON reads a JSON body into dst and validates it. An empty body is
// accepted when optional is true.
func decodeJSON(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any, optional bool) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.InvalidInput("request body too large")
		}
		return domain.InvalidInput("invalid JSON body: " + err.Error())
	}
	return validate(v, dst)
}

func validate(v *validator.Validate, dst any) error {
	if v == nil {
		return nil
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return domain.InvalidInput(fieldName(fe.Field()) + " failed '" + fe.Tag() + "' validation")
		}
		return domain.InvalidInput(err.Error())
	}
	return nil
}

func fieldName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

// actor attributes a mutation. A verified identity always wins; the
// explicit userEmail is honoured only when authentication is optional.
func actor(r *http.Request, d deps.Deps, userEmail string) string {
	if id, ok := auth.FromContext(r.Context()); ok {
		return id.Email
	}
	if d.AuthRequired {
		return ""
	}
	if userEmail == "" {
		userEmail = r.URL.Query().Get("userEmail")
	}
	return domain.NormalizeEmail(userEmail)
}
