package guard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/health"
	"github.com/jonwraymond/chatguard/validate"
)

// maxBodyBytes bounds decision request bodies.
const maxBodyBytes = 1 << 20

// CheckResponse is the JSON body of the decision endpoint.
type CheckResponse struct {
	Allowed  bool       `json:"allowed"`
	Decision *Decision  `json:"decision,omitempty"`
	Error    *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the wire form of a Denial.
type ErrorBody struct {
	Code         Code   `json:"code"`
	Stage        Stage  `json:"stage,omitempty"`
	Message      string `json:"message"`
	Suggestion   string `json:"suggestion,omitempty"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
	Matched      string `json:"matched,omitempty"`
	Field        string `json:"field,omitempty"`
}

// NewErrorBody converts d for the wire.
func NewErrorBody(d *Denial) *ErrorBody {
	return &ErrorBody{
		Code:         d.Code,
		Stage:        d.Stage,
		Message:      d.Message,
		Suggestion:   d.Suggestion,
		RetryAfterMs: d.RetryAfter.Milliseconds(),
		Matched:      d.Matched,
		Field:        d.Field,
	}
}

// HTTPStatus maps a denial code to a response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeWriteDisabled, CodeRoomNotAllowed, CodePermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// CheckHandler decides a JSON-encoded Request without calling upstream.
// Credentials are read from the request headers. Allowed requests get 200;
// denials get the status from HTTPStatus and, for rate limits, a
// Retry-After header in whole seconds.
func CheckHandler(p *Pipeline) http.Handler {
	return auth.WithAuthHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			d := newDenial(CodeValidation, StageValidate, "invalid request body: "+err.Error(), validate.ErrInvalidInput)
			writeJSON(w, http.StatusBadRequest, CheckResponse{Error: NewErrorBody(d)})
			return
		}

		decision, err := p.Check(r.Context(), &req)
		if err == nil {
			writeJSON(w, http.StatusOK, CheckResponse{Allowed: true, Decision: decision})
			return
		}

		d, ok := AsDenial(err)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, CheckResponse{Error: &ErrorBody{Code: "INTERNAL", Message: err.Error()}})
			return
		}
		if d.RetryAfter > 0 {
			secs := (d.RetryAfter.Milliseconds() + 999) / 1000
			w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
		}
		writeJSON(w, HTTPStatus(d.Code), CheckResponse{Error: NewErrorBody(d)})
	}))
}

// SanitizeHandler neutralizes the "text" field of a JSON body with the
// container's current sanitizer.
func SanitizeHandler(c *Container) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text *string `json:"text"`
		}
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		err := dec.Decode(&body)
		if err == nil && body.Text == nil {
			err = errors.New("text is required")
		}
		if err != nil {
			d := newDenial(CodeValidation, StageSanitize, err.Error(), validate.ErrInvalidInput)
			writeJSON(w, http.StatusBadRequest, CheckResponse{Error: NewErrorBody(d)})
			return
		}
		writeJSON(w, http.StatusOK, c.Sanitizer().Sanitize(*body.Text))
	})
}

// RegisterHandlers mounts the decision and sanitize endpoints and the
// health endpoints of c.
func RegisterHandlers(mux *http.ServeMux, c *Container) {
	mux.Handle("POST /v1/check", CheckHandler(c.Pipeline()))
	mux.Handle("POST /v1/sanitize", SanitizeHandler(c))
	health.RegisterHandlers(mux, c.Health())
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
