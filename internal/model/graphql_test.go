package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseGraphQLRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"query only", `{"query":"{ ping }"}`, nil},
		{"all fields", `{"query":"query Q($id: Int!) { entry(id: $id) { id } }","variables":{"id":1},"operationName":"Q"}`, nil},
		{"empty body", ``, ErrInvalidJSON},
		{"truncated object", `{"query":`, ErrInvalidJSON},
		{"plain text", `query { ping }`, ErrInvalidJSON},
		{"missing query", `{"variables":{}}`, ErrMissingQuery},
		{"empty query", `{"query":""}`, ErrMissingQuery},
		{"null query", `{"query":null}`, ErrMissingQuery},
		{"numeric query", `{"query":42}`, ErrMissingQuery},
		{"array body", `[{"query":"{ ping }"}]`, ErrMissingQuery},
		{"null body", `null`, ErrMissingQuery},
		{"string body", `"{ ping }"`, ErrMissingQuery},
		{"capitalized query key", `{"Query":"{ ping }"}`, ErrMissingQuery},
		{"upper-case query key", `{"QUERY":"{ ping }"}`, ErrMissingQuery},
		{"exact key beside empty case variant", `{"query":"{ ping }","QUERY":""}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseGraphQLRequest([]byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseGraphQLRequest() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseGraphQLRequest() error = %v", err)
			}
			if req == nil {
				t.Fatal("ParseGraphQLRequest() returned nil request")
			}
		})
	}
}

func TestGraphQLRequest_Marshal_PreservesFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "query only omits optional fields",
			body: `{"query":"{ ping }"}`,
			want: `{"query":"{ ping }"}`,
		},
		{
			name: "all fields kept",
			body: `{"query":"{ a }","variables":{"n":1.50,"big":12345678901234567890},"operationName":"A"}`,
			want: `{"query":"{ a }","variables":{"n":1.50,"big":12345678901234567890},"operationName":"A"}`,
		},
		{
			name: "explicit null kept",
			body: `{"query":"{ a }","variables":null,"operationName":null}`,
			want: `{"query":"{ a }","variables":null,"operationName":null}`,
		},
		{
			name: "unknown fields dropped",
			body: `{"query":"{ a }","extensions":{"persistedQuery":{}}}`,
			want: `{"query":"{ a }"}`,
		},
		{
			name: "case variants of known keys not renamed",
			body: `{"query":"{ a }","Variables":{"x":1},"OPERATIONNAME":"A"}`,
			want: `{"query":"{ a }"}`,
		},
		{
			name: "exact query wins over case variant",
			body: `{"query":"{ a }","QUERY":""}`,
			want: `{"query":"{ a }"}`,
		},
		{
			name: "html characters not escaped",
			body: `{"query":"{ a(where: {x: {_lt: \"<b>&\"}}) }"}`,
			want: `{"query":"{ a(where: {x: {_lt: \"<b>&\"}}) }"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseGraphQLRequest([]byte(tt.body))
			if err != nil {
				t.Fatalf("ParseGraphQLRequest() error = %v", err)
			}
			got, err := req.Marshal()
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDiagnostics_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(Diagnostics{Status: "ok", HasEndpoint: true, EndpointPreview: "x...", HasSecret: false})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"status":"ok","hasEndpoint":true,"endpointPreview":"x...","hasSecret":false}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
