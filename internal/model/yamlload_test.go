package model

import "testing"

const sampleMap = `
repository: registry.example.com/acme
default_tag: latest
clients: [default]
host:
  data: /srv/acme/data
volumes:
  app_socket:
    path: /var/run/app
networks:
  front:
    driver: bridge
containers:
  app_base:
    abstract: true
    user: "1000"
  app:
    extends: [app_base]
    image: acme/app
    attaches: [app_socket]
    exposes: ["8080:80"]
    networks: [front]
  web:
    extends: [app_base]
    image: acme/web
    uses: [app_socket]
    links: [app]
`

func TestLoadMapBuildsCanonicalRecords(t *testing.T) {
	m, effective, err := LoadMap("acme", []byte(sampleMap))
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if m.Repository != "registry.example.com/acme" {
		t.Errorf("Repository = %q", m.Repository)
	}
	if _, ok := m.Host["data"]; !ok {
		t.Errorf("expected host alias %q", "data")
	}
	if _, ok := m.Volumes["app_socket"]; !ok {
		t.Errorf("expected volume alias %q", "app_socket")
	}

	app, ok := effective["app"]
	if !ok {
		t.Fatalf("expected effective config for %q", "app")
	}
	if app.Image != "acme/app" {
		t.Errorf("app.Image = %q", app.Image)
	}
	if got := MustResolveConst(app.User); got != "1000" {
		t.Errorf("app.User (inherited from app_base) = %q, want 1000", got)
	}
	if len(app.Exposes) != 1 || app.Exposes[0].ContainerPort != 8080 {
		t.Fatalf("app.Exposes = %+v", app.Exposes)
	}
	if !app.Exposes[0].HasHostPort || MustResolveConst(app.Exposes[0].HostPort) != 80 {
		t.Errorf("app.Exposes[0] host port = %+v", app.Exposes[0])
	}
	if len(app.Networks) != 1 || app.Networks[0].Network != "front" {
		t.Errorf("app.Networks = %+v", app.Networks)
	}

	web, ok := effective["web"]
	if !ok {
		t.Fatalf("expected effective config for %q", "web")
	}
	if len(web.Uses) != 1 || web.Uses[0].Target != "app_socket" {
		t.Errorf("web.Uses = %+v", web.Uses)
	}
	if len(web.Links) != 1 || web.Links[0].Container != "app" {
		t.Errorf("web.Links = %+v", web.Links)
	}
}

func TestLoadMapRejectsDanglingBindAlias(t *testing.T) {
	const doc = `
containers:
  app:
    image: acme/app
    binds: ["missing_alias"]
`
	if _, _, err := LoadMap("acme", []byte(doc)); err == nil {
		t.Fatal("expected a map integrity error for the unknown bind alias")
	}
}

func TestParsePortSpecParsesHostAndProtocol(t *testing.T) {
	p, err := parsePortSpec("53/udp:5353")
	if err != nil {
		t.Fatalf("parsePortSpec: %v", err)
	}
	if p.ContainerPort != 53 || p.Protocol != "udp" {
		t.Errorf("got %+v", p)
	}
	if !p.HasHostPort || MustResolveConst(p.HostPort) != 5353 {
		t.Errorf("got %+v", p)
	}
}
