package mrsdk

// Object is a decoded JSON object as returned by the provider.
type Object = map[string]any

// Options are caller supplied request options. Every key except the reserved
// ones becomes a query parameter; "version" selects the API version through
// the Accept header.
type Options map[string]any

// Reserved option keys.
const (
	OptionVersion     = "version"
	OptionAccessToken = "access_token"
)

// WithVersion returns a copy of o with the API version set.
func (o Options) WithVersion(version int) Options {
	out := make(Options, len(o)+1)
	for k, v := range o {
		out[k] = v
	}
	out[OptionVersion] = version
	return out
}

// CreateExpectation describes the response a create call must produce.
type CreateExpectation struct {
	// Envelope is the singular resource key wrapping the entity in both the
	// request and the response body, e.g. "user".
	Envelope string

	// Required are the keys the returned entity must contain.
	Required []string

	// AcceptConflict treats a 409 response as success and returns the
	// existing entity carried in its body.
	AcceptConflict bool
}

// ErrorResponse is the provider's error envelope.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
