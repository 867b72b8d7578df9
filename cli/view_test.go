package cli

import (
	"reflect"
	"testing"
)

func TestParseViewArgs(t *testing.T) {
	tests := []struct {
		name           string
		in             []string
		n              int
		wantPositional []string
		wantSelectors  []string
	}{
		{
			name:           "empty args",
			in:             []string{},
			n:              2,
			wantPositional: nil,
			wantSelectors:  nil,
		},
		{
			name:           "file only",
			in:             []string{"api.test.ts"},
			n:              2,
			wantPositional: []string{"api.test.ts"},
			wantSelectors:  nil,
		},
		{
			name:           "file and test",
			in:             []string{"api.test.ts", "health"},
			n:              2,
			wantPositional: []string{"api.test.ts", "health"},
			wantSelectors:  nil,
		},
		{
			name:           "negative index",
			in:             []string{"api.test.ts", "health", "-1"},
			n:              2,
			wantPositional: []string{"api.test.ts", "health"},
			wantSelectors:  []string{"-1"},
		},
		{
			name:           "two selectors",
			in:             []string{"api.test.ts", "health", "-2", "0"},
			n:              2,
			wantPositional: []string{"api.test.ts", "health"},
			wantSelectors:  []string{"-2", "0"},
		},
		{
			name:           "-- ends positional part",
			in:             []string{"api.test.ts", "--", "-1"},
			n:              2,
			wantPositional: []string{"api.test.ts"},
			wantSelectors:  []string{"-1"},
		},
		{
			name:           "-- after positional part",
			in:             []string{"api.test.ts", "health", "--", "-1"},
			n:              2,
			wantPositional: []string{"api.test.ts", "health"},
			wantSelectors:  []string{"-1"},
		},
		{
			name:           "only --",
			in:             []string{"--"},
			n:              2,
			wantPositional: nil,
			wantSelectors:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotPositional, gotSelectors := parseViewArgs(tt.in, tt.n)
			if !reflect.DeepEqual(gotPositional, tt.wantPositional) {
				t.Errorf("parseViewArgs() positional = %v, want %v", gotPositional, tt.wantPositional)
			}
			if !reflect.DeepEqual(gotSelectors, tt.wantSelectors) {
				t.Errorf("parseViewArgs() selectors = %v, want %v", gotSelectors, tt.wantSelectors)
			}
		})
	}
}
