package clientreg

import (
	"context"
	"testing"

	"github.com/cntrland/landscaper/internal/model"
)

func TestAPIVersionAtLeast(t *testing.T) {
	cases := []struct {
		have, want string
		want_      bool
	}{
		{"1.41", "1.21", true},
		{"1.21", "1.21", true},
		{"1.20", "1.21", false},
		{"2.0", "1.41", true},
		{"bogus", "1.21", false},
	}
	for _, tc := range cases {
		if got := apiVersionAtLeast(tc.have, tc.want); got != tc.want_ {
			t.Errorf("apiVersionAtLeast(%q,%q) = %v, want %v", tc.have, tc.want, got, tc.want_)
		}
	}
}

func TestDialRejectsSSHEndpoints(t *testing.T) {
	_, err := dial(context.Background(), &model.ClientConfig{Name: "remote", BaseURL: "ssh://user@host"})
	if err == nil {
		t.Fatalf("expected an error for an ssh:// base_url")
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := &Registry{clients: map[string]*Client{}}
	if _, ok := r.Get("default"); ok {
		t.Errorf("expected no client registered")
	}
}
