package auth

import (
	"encoding/base64"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"dirserve/internal/config"
)

func basic(u, p string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(u+":"+p))
}

func testConfig(t *testing.T, optional bool) config.Config {
	t.Helper()
	h, err := HashPassword("secret", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return config.Config{
		AuthOptional: optional,
		Users:        map[string]config.User{"alice": {Bcrypt: h}},
		ACLs: []config.ACL{
			{Path: "/pub/", Read: []string{"*"}},
			{Path: "/private", Read: []string{"alice"}},
		},
	}
}

func TestAuthenticate(t *testing.T) {
	strict := testConfig(t, false)
	optional := testConfig(t, true)
	tests := []struct {
		name     string
		cfg      config.Config
		header   string
		wantUser string
		wantOK   bool
	}{
		{"no auth configured", config.Config{}, "", "", true},
		{"strict anonymous", strict, "", "", false},
		{"optional anonymous", optional, "", "", true},
		{"valid", strict, basic("alice", "secret"), "alice", true},
		{"wrong password", optional, basic("alice", "nope"), "", false},
		{"unknown user", strict, basic("bob", "secret"), "", false},
		{"not basic", strict, "Bearer abc", "", false},
		{"bad base64", strict, "Basic !!!", "", false},
		{"no colon", strict, "Basic " + base64.StdEncoding.EncodeToString([]byte("alice")), "", false},
		{"empty user", strict, basic("", "secret"), "", false},
		{"nul in password", strict, basic("alice", "sec\x00ret"), "", false},
		{"colon in password", strict, basic("alice", "se:cret"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, ok := Authenticate(tt.cfg, tt.header)
			if user != tt.wantUser || ok != tt.wantOK {
				t.Errorf("Authenticate = (%q, %v), want (%q, %v)", user, ok, tt.wantUser, tt.wantOK)
			}
		})
	}
}

func TestCanRead(t *testing.T) {
	cfg := testConfig(t, true)
	tests := []struct {
		user string
		path string
		want bool
	}{
		{"", "/pub", true},
		{"", "/pub/a/b.txt", true},
		{"", "/public", false},
		{"", "/private/x", false},
		{"alice", "/private/x", true},
		{"", "/other", false},
		{"alice", "/other", true},
		{"", "pub/x", true},
	}
	for _, tt := range tests {
		if got := CanRead(cfg, tt.user, tt.path); got != tt.want {
			t.Errorf("CanRead(%q, %q) = %v, want %v", tt.user, tt.path, got, tt.want)
		}
	}
	if !CanRead(config.Config{}, "", "/anything") {
		t.Error("no-auth mode should allow everything")
	}
}

func TestCanReadACLPaths(t *testing.T) {
	cfg := testConfig(t, true)
	cfg.ACLs = []config.ACL{
		{Path: "docs", Read: []string{" alice "}},
		{Path: "", Read: []string{"*"}},
	}
	tests := []struct {
		user string
		path string
		want bool
	}{
		{"", "/docs/a.txt", false},
		{"alice", "/docs/a.txt", true},
		{"alice", "/docs", true},
		{"", "/docsx", true},
		{"", "/docs/../x", true},
		{"", "/", true},
	}
	for _, tt := range tests {
		if got := CanRead(cfg, tt.user, tt.path); got != tt.want {
			t.Errorf("CanRead(%q, %q) = %v, want %v", tt.user, tt.path, got, tt.want)
		}
	}
}
