package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"relay/pkg/common"
	"relay/pkg/routing"
)

// Well-known metadata keys seeded by transport adapters and read by
// interceptors.
const (
	MetaAuthorization = "authorization"
	MetaClientIP      = "client_ip"
	MetaUserID        = "user_id"
	MetaClaims        = "auth_claims"
)

// RequestContext is the per-request scratch state. It is created at pipeline
// entry, owned exclusively by the in-flight request, and discarded when the
// pipeline reaches Done. It is not safe for concurrent use and never needs
// to be: a request's stages run strictly sequentially.
type RequestContext struct {
	RequestID string
	Method    string
	Path      string
	StartedAt time.Time

	// Route and Params are set once Routing succeeds.
	Route  *routing.Entry
	Params routing.Params

	// Payload is set by the decoder collaborator before Handling.
	Payload interface{}

	ctx     context.Context
	meta    map[string]interface{}
	timings []PhaseTiming
}

// PhaseTiming records when a pipeline state was entered.
type PhaseTiming struct {
	State State
	At    time.Time
}

func newRequestContext(ctx context.Context, req *Request) *RequestContext {
	requestID := req.RequestID
	if requestID == "" {
		if id, ok := common.GetRequestID(ctx); ok {
			requestID = id
		} else {
			requestID = uuid.NewString()
		}
	}

	rc := &RequestContext{
		RequestID: requestID,
		Method:    req.Method,
		Path:      req.Path,
		StartedAt: time.Now(),
		ctx:       common.WithRequestID(ctx, requestID),
		meta:      make(map[string]interface{}),
	}
	for k, v := range req.Meta {
		rc.meta[k] = v
	}
	return rc
}

// Context returns the request-scoped context carrying cancellation and
// request metadata for handlers and collaborators.
func (rc *RequestContext) Context() context.Context {
	return rc.ctx
}

// Set attaches a metadata value to the request.
func (rc *RequestContext) Set(key string, value interface{}) {
	rc.meta[key] = value
}

// Get returns a metadata value attached to the request.
func (rc *RequestContext) Get(key string) (interface{}, bool) {
	v, ok := rc.meta[key]
	return v, ok
}

// GetString returns a string metadata value, or "" if absent or not a string.
func (rc *RequestContext) GetString(key string) string {
	if v, ok := rc.meta[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SetUser records the authenticated principal. The user id and roles become
// visible both in the metadata bag and in the handler context.
func (rc *RequestContext) SetUser(userID string, roles []string) {
	rc.meta[MetaUserID] = userID
	rc.ctx = common.WithUserID(rc.ctx, userID)
	if len(roles) > 0 {
		rc.ctx = common.WithUserRoles(rc.ctx, roles)
	}
}

// Elapsed returns the time since the pipeline entered Routing.
func (rc *RequestContext) Elapsed() time.Duration {
	return time.Since(rc.StartedAt)
}

// Timings returns the recorded state transitions in order.
func (rc *RequestContext) Timings() []PhaseTiming {
	return rc.timings
}

func (rc *RequestContext) mark(s State) {
	rc.timings = append(rc.timings, PhaseTiming{State: s, At: time.Now()})
}

func (rc *RequestContext) bindRoute(entry *routing.Entry, params routing.Params) {
	rc.Route = entry
	rc.Params = params
	rc.ctx = common.WithRouteParams(rc.ctx, params)
}
