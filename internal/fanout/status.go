package fanout

import (
	"github.com/CatalystCode/elastic-osm-tiles/internal/errkind"
	"github.com/rotisserie/eris"
)

const invalidStatusCode = -1

// ResponseStatus carries status code, accumulated execution time, and any
// captured failure for one provider response. Execution time accumulates
// across sub-steps (fetch, parse, index) rather than being overwritten.
type ResponseStatus struct {
	statusCode      int
	executionTimeMS int64
	err             error
}

// NewStatus builds a status for a successful response.
func NewStatus(statusCode int, executionTimeMS int64) *ResponseStatus {
	return &ResponseStatus{statusCode: statusCode, executionTimeMS: executionTimeMS}
}

// StatusFromError builds a status for a failed response. If the error carries
// an upstream status code it is surfaced, otherwise the code is invalid (-1).
func StatusFromError(err error, executionTimeMS int64) *ResponseStatus {
	code := invalidStatusCode
	var upstream *UpstreamError
	if eris.As(err, &upstream) {
		code = upstream.StatusCode
	}
	return &ResponseStatus{statusCode: code, executionTimeMS: executionTimeMS, err: err}
}

// StatusCode returns the HTTP status code, or -1 when unknown.
func (s *ResponseStatus) StatusCode() int {
	if s.statusCode == 0 {
		return invalidStatusCode
	}
	return s.statusCode
}

// ExecutionTimeMS returns the accumulated execution time.
func (s *ResponseStatus) ExecutionTimeMS() int64 { return s.executionTimeMS }

// Err returns the captured failure, if any.
func (s *ResponseStatus) Err() error { return s.err }

// AddExecutionTime accumulates elapsed time from a follow-on processing step.
func (s *ResponseStatus) AddExecutionTime(ms int64) { s.executionTimeMS += ms }

// Fail records a failure discovered after the response was received (for
// example during parse or index), keeping the accumulated time.
func (s *ResponseStatus) Fail(err error) { s.err = err }

// ClientStatus is the client-facing execution envelope.
type ClientStatus struct {
	ExecutionTimeMS int64  `json:"ExecutionTimeMS"`
	StatusCode      int    `json:"StatusCode"`
	ErrorMessage    string `json:"ErrorMessage,omitempty"`
	ErrorType       string `json:"ErrorType,omitempty"`
}

// Client converts the status into its client-facing shape.
func (s *ResponseStatus) Client() ClientStatus {
	cs := ClientStatus{
		ExecutionTimeMS: s.executionTimeMS,
		StatusCode:      s.StatusCode(),
	}
	if s.err != nil {
		cs.ErrorMessage = s.err.Error()
		cs.ErrorType = errkind.Label(s.err)
	}
	return cs
}
