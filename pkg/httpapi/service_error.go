package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/serrors"
)

const (
	CodeInternal         = "INTERNAL_SERVER_ERROR"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

var (
	statusMu     sync.RWMutex
	statusByCode = map[string]int{
		serrors.CodeValidation:   http.StatusBadRequest,
		serrors.CodeNotFound:     http.StatusNotFound,
		serrors.CodeAccessDenied: http.StatusNotFound,
	}
)

// RegisterErrorStatus maps a domain error code to the HTTP status it is
// reported with.
func RegisterErrorStatus(code string, status int) {
	statusMu.Lock()
	defer statusMu.Unlock()
	statusByCode[code] = status
}

func statusFor(code string) (int, bool) {
	statusMu.RLock()
	defer statusMu.RUnlock()
	s, ok := statusByCode[code]
	return s, ok
}

// WriteServiceError renders err as an ErrorEnvelope. Access denials and
// missing resources produce the same body so callers cannot probe for
// nodes outside their scope.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, serrors.ErrNotFound) || errors.Is(err, serrors.ErrAccessDenied) {
		_ = WriteError(w, http.StatusNotFound, serrors.CodeNotFound, "not found", nil)
		return
	}

	var verr *serrors.ValidationError
	if errors.As(err, &verr) {
		_ = WriteError(w, http.StatusBadRequest, serrors.CodeValidation, "validation failed", verr.Fields)
		return
	}

	var base serrors.Base
	if errors.As(err, &base) {
		if status, ok := statusFor(base.ErrorCode()); ok {
			_ = WriteError(w, status, base.ErrorCode(), base.Error(), nil)
			return
		}
	}

	composables.UseLogger(r.Context()).WithError(err).Error("request failed")
	meta := map[string]string{}
	if id, ok := composables.UseRequestID(r.Context()); ok {
		meta["request_id"] = id
	}
	_ = WriteError(w, http.StatusInternalServerError, CodeInternal, "internal server error", meta)
}

// NotFound answers unmatched routes with a JSON envelope.
func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meta := map[string]string{"path": r.URL.Path}
		if id := requestID(w, r); id != "" {
			meta["request_id"] = id
		}
		_ = WriteError(w, http.StatusNotFound, serrors.CodeNotFound, "not found", meta)
	}
}

func MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meta := map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
		}
		if id := requestID(w, r); id != "" {
			meta["request_id"] = id
		}
		_ = WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed", meta)
	}
}

func requestID(w http.ResponseWriter, r *http.Request) string {
	if id := strings.TrimSpace(w.Header().Get("X-Request-Id")); id != "" {
		return id
	}
	if id, ok := composables.UseRequestID(r.Context()); ok {
		return id
	}
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}
