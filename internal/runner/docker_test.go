package runner

import (
	"testing"

	"github.com/cntrland/landscaper/internal/bundle"
)

func TestBuildContainerConfigAppliesImageEnvCmd(t *testing.T) {
	eb := &bundle.ExpectedBundle{
		Image: "app:latest",
		Env:   []string{"A=1"},
		Cmd:   []string{"serve"},
		User:  "2000",
		ExposedPorts: []bundle.PortBinding{
			{ContainerPort: 8080, Protocol: "tcp"},
		},
	}
	cfg, err := buildContainerConfig(eb, "host-1")
	if err != nil {
		t.Fatalf("buildContainerConfig: %v", err)
	}
	if cfg.Image != "app:latest" {
		t.Errorf("Image = %q", cfg.Image)
	}
	if cfg.User != "2000" {
		t.Errorf("User = %q", cfg.User)
	}
	if cfg.Hostname != "host-1" {
		t.Errorf("Hostname = %q", cfg.Hostname)
	}
	if len(cfg.ExposedPorts) != 1 {
		t.Fatalf("expected one exposed port, got %d", len(cfg.ExposedPorts))
	}
}

func TestBuildHostConfigTranslatesMountsAndLimits(t *testing.T) {
	eb := &bundle.ExpectedBundle{
		Mounts: []bundle.BindMount{
			{ContainerPath: "/data", HostPath: "/srv/data", ReadOnly: true},
			{ContainerPath: "/vol", VolumeName: "app_socket"},
		},
		Links:       []bundle.LinkRef{{Container: "m.db", Alias: "db"}},
		VolumesFrom: []string{"m.app_socket"},
		Limits:      bundle.Limits{Memory: 128 << 20, PidsLimit: 50},
	}
	hc, err := buildHostConfig(eb)
	if err != nil {
		t.Fatalf("buildHostConfig: %v", err)
	}
	if len(hc.Binds) != 1 || hc.Binds[0] != "/srv/data:/data:ro" {
		t.Errorf("Binds = %v", hc.Binds)
	}
	if len(hc.Mounts) != 1 || hc.Mounts[0].Source != "app_socket" {
		t.Errorf("Mounts = %+v", hc.Mounts)
	}
	if len(hc.Links) != 1 || hc.Links[0] != "m.db:db" {
		t.Errorf("Links = %v", hc.Links)
	}
	if len(hc.VolumesFrom) != 1 || hc.VolumesFrom[0] != "m.app_socket" {
		t.Errorf("VolumesFrom = %v", hc.VolumesFrom)
	}
	if hc.Memory != 128<<20 {
		t.Errorf("Memory = %d", hc.Memory)
	}
	if hc.PidsLimit == nil || *hc.PidsLimit != 50 {
		t.Errorf("PidsLimit = %v", hc.PidsLimit)
	}
}

func TestBuildNetworkConfigSplitsPrimaryFromExtra(t *testing.T) {
	eb := &bundle.ExpectedBundle{
		Networks: []bundle.EndpointRef{
			{Network: "front"},
			{Network: "back"},
		},
	}
	cfg, extra := buildNetworkConfig(eb)
	if cfg == nil || len(cfg.EndpointsConfig) != 1 {
		t.Fatalf("expected one endpoint in the create-time config, got %+v", cfg)
	}
	if _, ok := cfg.EndpointsConfig["front"]; !ok {
		t.Errorf("expected the first network to be attached at create time")
	}
	if len(extra) != 1 || extra[0].Network != "back" {
		t.Errorf("expected the remaining network queued for post-create connect, got %+v", extra)
	}
}

func TestNatPortDefaultsToTCP(t *testing.T) {
	p, err := natPort(80, "")
	if err != nil {
		t.Fatalf("natPort: %v", err)
	}
	if p.Proto() != "tcp" {
		t.Errorf("expected tcp, got %s", p.Proto())
	}
}

func TestSplitExecCommandWrapsShellStrings(t *testing.T) {
	got := splitExecCommand([]string{"echo hi"})
	want := []string{"/bin/sh", "-c", "echo hi"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}

	argv := splitExecCommand([]string{"echo", "hi"})
	if len(argv) != 2 {
		t.Errorf("argv form should pass through unchanged, got %v", argv)
	}
}
