package middleware

import "testing"

func TestHostMatches(t *testing.T) {
	tests := []struct {
		host    string
		allowed []string
		want    bool
	}{
		{"relay.example.com", []string{"relay.example.com"}, true},
		{"relay.example.com:8443", []string{"relay.example.com"}, true},
		{"relay.example.com:8443", []string{"relay.example.com:8443"}, true},
		{"relay.example.com:9000", []string{"relay.example.com:8443"}, false},
		{"RELAY.example.com", []string{" relay.example.com "}, true},
		{"api.relay.example.com", []string{"relay.example.com"}, false},
		{"[::1]:5000", []string{"::1"}, true},
		{"::1", []string{"[::1]"}, true},
		{"[::1]:5000", []string{"[::1]:6000"}, false},
		{"", []string{"relay.example.com"}, false},
		{"relay.example.com", nil, false},
	}

	for _, tt := range tests {
		if got := hostMatches(tt.host, tt.allowed); got != tt.want {
			t.Errorf("hostMatches(%q, %v) = %v, want %v", tt.host, tt.allowed, got, tt.want)
		}
	}
}

func TestIsHostAllowed_EmptyListAllowsAll(t *testing.T) {
	if !IsHostAllowed("anything.test", nil) {
		t.Error("empty allow-list should allow every host")
	}
	if IsHostAllowed("evil.test", []string{"relay.example.com"}) {
		t.Error("evil.test should be rejected")
	}
}

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"https://app.budget.test", true},
		{"http://localhost:8081", true},
		{"https://evil.test", false},
		{"://invalid", false},
		{"null", false},
	}
	allowed := []string{"app.budget.test", "localhost"}

	for _, tt := range tests {
		if got := isOriginAllowed(tt.origin, allowed); got != tt.want {
			t.Errorf("isOriginAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
