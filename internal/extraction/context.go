package extraction

import (
	"github.com/google/uuid"
)

// Context is the per-request key-value map accumulating extracted field
// values. It is owned by a single request and never shared across requests.
type Context map[string]any

// ContextKeyCorrelationID carries the request correlation id through the
// pipeline and into endpoint placeholders.
const ContextKeyCorrelationID = "correlationId"

// ContextKeyAuthToken passes the caller's auth token through to data sources
// that need it.
const ContextKeyAuthToken = "authToken"

// NewContext builds the initial context from request parameters and system
// variables. A correlation id is generated when the caller did not supply one.
func NewContext(params map[string]string, authToken string) Context {
	ctx := make(Context, len(params)+2)
	for k, v := range params {
		ctx[k] = v
	}
	if _, ok := ctx[ContextKeyCorrelationID]; !ok {
		ctx[ContextKeyCorrelationID] = uuid.NewString()
	}
	if authToken != "" {
		ctx[ContextKeyAuthToken] = authToken
	}
	return ctx
}

// Clone returns a shallow copy. Used to keep the merged context isolated from
// per-level working copies.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Merge copies every entry of other into c, overwriting existing keys.
func (c Context) Merge(other Context) {
	for k, v := range other {
		c[k] = v
	}
}
