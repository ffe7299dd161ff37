// Package graphql is the outbound request pipeline for the expense API.
//
// A request passes through an ordered list of Transform stages (credential
// attachment, request ids, static headers) and is then dispatched by a
// Transport. Client adds a response cache on top of the pipeline.
package graphql

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Request is a single GraphQL operation.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`

	// Header holds outbound HTTP headers set by pipeline stages.
	Header http.Header `json:"-"`
}

// NewRequest builds a request for query with optional variables.
func NewRequest(operationName, query string, variables map[string]any) *Request {
	return &Request{
		Query:         query,
		OperationName: operationName,
		Variables:     variables,
		Header:        make(http.Header),
	}
}

// Response is the decoded GraphQL envelope.
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors,omitempty"`
}

// Error is one entry of a GraphQL errors array.
type Error struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

var (
	// ErrUnauthorized is returned when the API rejects the credential.
	ErrUnauthorized = errors.New("graphql: unauthorized")
	// ErrNoData is returned when a response carries neither data nor errors.
	ErrNoData = errors.New("graphql: response has no data")
)

// ResponseError wraps the errors array of a GraphQL response.
type ResponseError struct {
	Operation string
	Errors    []Error
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, er := range e.Errors {
		msgs = append(msgs, er.Message)
	}
	op := e.Operation
	if op == "" {
		op = "operation"
	}
	return fmt.Sprintf("graphql %s: %s", op, strings.Join(msgs, "; "))
}

// Messages returns the individual error messages.
func (e *ResponseError) Messages() []string {
	out := make([]string, len(e.Errors))
	for i, er := range e.Errors {
		out[i] = er.Message
	}
	return out
}

// StatusError reports a non-2xx HTTP response without a GraphQL body.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graphql: unexpected HTTP status %d: %s", e.StatusCode, e.Body)
}

// Decode unmarshals the response data into out, or returns the GraphQL
// errors as a *ResponseError.
func (r *Response) Decode(operation string, out any) error {
	if len(r.Errors) > 0 {
		return &ResponseError{Operation: operation, Errors: r.Errors}
	}
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return ErrNoData
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", operation, err)
	}
	return nil
}
