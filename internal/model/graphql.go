package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

var (
	// ErrInvalidJSON is returned when the request body is not valid JSON.
	ErrInvalidJSON = errors.New("Invalid JSON body") //nolint:staticcheck // message is part of the wire contract

	// ErrMissingQuery is returned when the body has no non-empty "query" string.
	ErrMissingQuery = errors.New("Missing GraphQL query") //nolint:staticcheck // message is part of the wire contract
)

// GraphQLRequest is an inbound GraphQL-over-HTTP request.
//
// Fields hold the raw JSON exactly as the client sent it, so forwarding never
// re-types variables or alters number precision.
type GraphQLRequest struct {
	Query         json.RawMessage `json:"query"`
	Variables     json.RawMessage `json:"variables,omitempty"`
	OperationName json.RawMessage `json:"operationName,omitempty"`
}

// ParseGraphQLRequest decodes a request body.
// It returns ErrInvalidJSON for malformed JSON and ErrMissingQuery when the
// body is not an object carrying a non-empty "query" string.
func ParseGraphQLRequest(body []byte) (*GraphQLRequest, error) {
	if !json.Valid(body) {
		return nil, ErrInvalidJSON
	}

	// Keys are matched exactly; struct decoding would fold case.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		// Valid JSON of the wrong shape (array, string, number, null).
		return nil, ErrMissingQuery
	}
	req := GraphQLRequest{
		Query:         fields["query"],
		Variables:     fields["variables"],
		OperationName: fields["operationName"],
	}

	var query string
	if len(req.Query) == 0 || bytes.Equal(req.Query, []byte("null")) {
		return nil, ErrMissingQuery
	}
	if err := json.Unmarshal(req.Query, &query); err != nil || query == "" {
		return nil, ErrMissingQuery
	}

	return &req, nil
}

// Marshal encodes the request for the upstream. Only query, variables and
// operationName are emitted; fields the client omitted stay omitted.
func (r *GraphQLRequest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
