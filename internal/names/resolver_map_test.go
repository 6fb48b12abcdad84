package names

import (
	"testing"

	"github.com/cntrland/landscaper/internal/model"
)

func TestHostName(t *testing.T) {
	m := &model.Map{Name: "m", SetHostname: true}
	if got := HostName(m, "", "m.app"); got != "none-m-app" {
		t.Errorf("got %q", got)
	}
	if got := HostName(m, "prod", "m.app"); got != "prod-m-app" {
		t.Errorf("got %q", got)
	}
	m.SetHostname = false
	if got := HostName(m, "prod", "m.app"); got != "" {
		t.Errorf("expected empty hostname when disabled, got %q", got)
	}
}

func TestAttachedVolumeName(t *testing.T) {
	m := &model.Map{Name: "m"}
	if got := AttachedVolumeName(m, "app", "sock"); got != "m.sock" {
		t.Errorf("got %q", got)
	}
	m.UseAttachedParentName = true
	if got := AttachedVolumeName(m, "app", "sock"); got != "m.app.sock" {
		t.Errorf("got %q", got)
	}
}
