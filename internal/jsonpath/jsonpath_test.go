/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package jsonpath

import "testing"

func TestCanonicalizeDefault(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "object with whitespace",
			raw:  `{ "a" : 1,  "b": 2 }`,
			want: `{"a":1,"b":2}`,
		},
		{
			name: "array",
			raw:  `[1, 2, 3]`,
			want: `[1,2,3]`,
		},
		{
			name: "string literal",
			raw:  `"hello"`,
			want: `"hello"`,
		},
		{
			name: "empty object",
			raw:  `{}`,
			want: `{}`,
		},
		{
			name:    "malformed",
			raw:     `{not json}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizeDefault(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil (result %q)", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanonicalizeDefault(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidatePathExpression(t *testing.T) {
	if err := ValidatePathExpression("$.a.b[0]"); err != nil {
		t.Errorf("unexpected error for valid path: %v", err)
	}
	if err := ValidatePathExpression("not a path {{{"); err == nil {
		t.Errorf("expected error for invalid path")
	}
}
