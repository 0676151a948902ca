// FilePath: api/resources/resources.go
package resources

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gorilla/schema"
	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/api/middleware"
	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/hubservice"
)

const defaultMaxBodyBytes int64 = 10 * 1024 * 1024

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Resources holds all HTTP resource handlers
type Resources struct {
	Hives  *HiveHandlers
	Images *ImageHandlers
	Users  *UserHandlers
	Health *HealthHandlers
}

// Config tunes request decoding.
type Config struct {
	MaxBodyBytes int64
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.HubService, cfg Config) *Resources {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	dec := &requestDecoder{query: schema.NewDecoder(), maxBodyBytes: cfg.MaxBodyBytes}
	dec.query.IgnoreUnknownKeys(true)

	return &Resources{
		Hives:  &HiveHandlers{hubservice: svc, decoder: dec},
		Images: &ImageHandlers{hubservice: svc, decoder: dec},
		Users:  &UserHandlers{hubservice: svc, decoder: dec},
		Health: &HealthHandlers{store: svc.Store},
	}
}

type requestDecoder struct {
	query        *schema.Decoder
	maxBodyBytes int64
}

// body decodes a JSON request body, rejecting bodies over the size limit.
func (d *requestDecoder) body(w http.ResponseWriter, r *http.Request, dst interface{}) *errors.APIError {
	r.Body = http.MaxBytesReader(w, r.Body, d.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewPayloadTooLargeError("request body too large", err)
		}
		if stderrors.Is(err, io.EOF) {
			return errors.NewValidationError("request body is empty", err)
		}
		return errors.NewValidationError("invalid request body", err)
	}
	return nil
}

// params decodes the query string into dst.
func (d *requestDecoder) params(r *http.Request, dst interface{}) *errors.APIError {
	if err := d.query.Decode(dst, r.URL.Query()); err != nil {
		return errors.NewValidationError("invalid query parameters", err)
	}
	return nil
}

// respondWithServiceError maps a service error onto its APIError, falling
// back to a 500 with msg for anything untyped.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	apiErr, ok := errors.As(err)
	if !ok {
		apiErr = errors.NewInternalError(msg, err)
	}
	respondWithError(w, r, apiErr)
}

func respondWithError(w http.ResponseWriter, r *http.Request, err *errors.APIError) {
	err.WithRequestID(middleware.RequestIDFromContext(r.Context()))
	if err.Code >= http.StatusInternalServerError {
		nuts.L.Errorf("[API] %s %s: %s", r.Method, r.URL.Path, err.Error())
	} else {
		nuts.L.Warnf("[API] %s %s: %s", r.Method, r.URL.Path, err.Error())
	}
	respondWithJSON(w, err.Code, err)
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		nuts.L.Errorf("[API] Failed to encode response: %v", err)
	}
}

// MethodNotAllowed answers a known path requested with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, errors.NewMethodNotAllowedError("method "+r.Method+" not allowed"))
}

// NotFound answers unknown paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, errors.NewNotFoundError("route not found", nil))
}
