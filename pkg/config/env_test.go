package config

import "testing"

func TestExpandEnvVars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
	}{
		{
			name:     "no variables",
			input:    "hello world",
			expected: "hello world",
		},
		{
			name:     "simple variable",
			input:    "authorization: Bearer ${TOKEN}",
			envVars:  map[string]string{"TOKEN": "abc"},
			expected: "authorization: Bearer abc",
		},
		{
			name:     "default used when unset",
			input:    "origin: ${API_ORIGIN:-http://localhost:8080}",
			expected: "origin: http://localhost:8080",
		},
		{
			name:     "default ignored when set",
			input:    "origin: ${API_ORIGIN:-http://localhost:8080}",
			envVars:  map[string]string{"API_ORIGIN": "https://api.test"},
			expected: "origin: https://api.test",
		},
		{
			name:     "missing variable without default",
			input:    "x${NOPE_NOT_SET}y",
			expected: "xy",
		},
		{
			name:     "bare dollar untouched",
			input:    `regex: "^/users/\d+$"`,
			expected: `regex: "^/users/\d+$"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			if got := ExpandEnvVars(tt.input); got != tt.expected {
				t.Errorf("ExpandEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
