package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cntrland/landscaper/internal/model"
)

func idxOf(nodes []Node, config string) int {
	for i, n := range nodes {
		if n.Config == config && n.Kind == KindContainer {
			return i
		}
	}
	return -1
}

// S3 from spec §8: web uses app_socket, app_socket attached to app.
// create("web") must process app before web; stop("web") must stop web
// before app.
func TestForwardReverseOrdering(t *testing.T) {
	m := &model.Map{
		Name: "m",
		Volumes: map[string]*model.VolumeConfig{
			"app_socket": {},
		},
		Containers: map[string]*model.ContainerConfig{
			"app": {Name: "app", Attaches: []model.AttachSpec{{Alias: "app_socket"}}},
			"web": {Name: "web", Uses: []model.UseSpec{{Target: "app_socket"}}},
		},
	}
	eff := map[string]*model.ContainerConfig{
		"app": m.Containers["app"],
		"web": m.Containers["web"],
	}
	g, err := New([]*model.Map{m}, map[string]map[string]*model.ContainerConfig{"m": eff})
	require.NoError(t, err)

	fwd := g.Forward()
	assert.Less(t, idxOf(fwd, "app"), idxOf(fwd, "web"), "forward order must place app before web: %+v", fwd)

	rev := g.Reverse()
	assert.Less(t, idxOf(rev, "web"), idxOf(rev, "app"), "reverse order must place web before app: %+v", rev)
}

func TestCycleDetection(t *testing.T) {
	m := &model.Map{
		Name: "m",
		Containers: map[string]*model.ContainerConfig{
			"a": {Name: "a", Links: []model.LinkSpec{{Container: "b"}}},
			"b": {Name: "b", Links: []model.LinkSpec{{Container: "a"}}},
		},
	}
	eff := map[string]*model.ContainerConfig{
		"a": m.Containers["a"],
		"b": m.Containers["b"],
	}
	_, err := New([]*model.Map{m}, map[string]map[string]*model.ContainerConfig{"m": eff})
	assert.Error(t, err, "expected a circular dependency error")
}

func TestGroupAllExpandsEveryNonAbstractContainer(t *testing.T) {
	m := &model.Map{
		Name: "m",
		Containers: map[string]*model.ContainerConfig{
			"base": {Name: "base", Abstract: true},
			"app":  {Name: "app", Extends: []string{"base"}},
			"web":  {Name: "web", Uses: []model.UseSpec{{Target: "app"}}},
		},
	}
	eff := map[string]*model.ContainerConfig{
		"base": m.Containers["base"],
		"app":  m.Containers["app"],
		"web":  m.Containers["web"],
	}
	g, err := New([]*model.Map{m}, map[string]map[string]*model.ContainerConfig{"m": eff})
	require.NoError(t, err)
	nodes, err := Group(g, m, eff, model.GroupAll, false)
	require.NoError(t, err)

	assert.Equal(t, -1, idxOf(nodes, "base"), "abstract config must not appear in __all__: %+v", nodes)
	assert.NotEqual(t, -1, idxOf(nodes, "app"), "expected app in __all__: %+v", nodes)
	assert.NotEqual(t, -1, idxOf(nodes, "web"), "expected web in __all__: %+v", nodes)
}
