package names

import "testing"

func TestResolveImage(t *testing.T) {
	cases := []struct {
		name       string
		cfg        string
		image      string
		repo       string
		defaultTag string
		want       string
	}{
		{"all unset", "app", "", "", "", "app:latest"},
		{"image only", "app", "image1", "", "", "image1:latest"},
		{"repo only", "app", "", "reg.example.com", "", "reg.example.com/app:latest"},
		{"image and repo", "app", "image1", "reg.example.com", "", "reg.example.com/image1:latest"},
		{"default tag only", "app", "", "", "devel", "app:devel"},
		{"leading slash bypasses repo", "app", "/image1", "reg.example.com", "", "image1:latest"},
		{"tag bypasses default tag", "app", "image1:one", "reg.example.com", "devel", "reg.example.com/image1:one"},
		{"slash and tag", "app", "/image1:two", "reg.example.com", "devel", "image1:two"},
		{"embedded slash bypasses repo", "app", "team/image1", "reg.example.com", "", "team/image1:latest"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveImage(tc.cfg, tc.image, tc.repo, tc.defaultTag)
			if got != tc.want {
				t.Errorf("ResolveImage(%q,%q,%q,%q) = %q, want %q",
					tc.cfg, tc.image, tc.repo, tc.defaultTag, got, tc.want)
			}
		})
	}
}

func TestContainerName(t *testing.T) {
	if got := ContainerName("m", "app", ""); got != "m.app" {
		t.Errorf("got %q", got)
	}
	if got := ContainerName("m", "app", "i1"); got != "m.app.i1" {
		t.Errorf("got %q", got)
	}
}

func TestHostNameInvalidChars(t *testing.T) {
	// exercised indirectly via the Map flag in resolver_map_test.go
}
