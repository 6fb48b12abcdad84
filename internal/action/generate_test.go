package action

import (
	"testing"

	"github.com/cntrland/landscaper/internal/depgraph"
	"github.com/cntrland/landscaper/internal/model"
	"github.com/cntrland/landscaper/internal/state"
)

func s3Resolved() *state.Resolved {
	m := &model.Map{
		Name: "m",
		Volumes: map[string]*model.VolumeConfig{
			"app_socket": {},
		},
		Containers: map[string]*model.ContainerConfig{
			"app": {Name: "app", Image: "app-image", Attaches: []model.AttachSpec{{Alias: "app_socket"}}},
			"web": {Name: "web", Image: "web-image", Uses: []model.UseSpec{{Target: "app_socket"}}},
		},
	}
	eff := map[string]*model.ContainerConfig{
		"app": m.Containers["app"],
		"web": m.Containers["web"],
	}
	return &state.Resolved{Map: m, Effective: eff}
}

func TestCreateGenOrdersAttachedBeforeDependents(t *testing.T) {
	r := s3Resolved()
	states := []state.NodeState{
		{Node: depgraph.Node{Kind: depgraph.KindAttached, Map: "m", Config: "app_socket"}},
		{Node: depgraph.Node{Kind: depgraph.KindContainer, Map: "m", Config: "app"}},
		{Node: depgraph.Node{Kind: depgraph.KindContainer, Map: "m", Config: "web"}},
	}
	gen, err := For(IntentCreate)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	ops, err := gen.Generate(r, states, "default", DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(ops) == 0 {
		t.Fatalf("expected ops, got none")
	}
	if ops[0].Kind != KindCreateVolume {
		t.Errorf("first op should create the attached volume holder, got %v", ops[0].Kind)
	}
	var sawApp, sawWeb bool
	for _, op := range ops {
		if op.Kind != KindCreateContainer {
			continue
		}
		switch op.ContainerName {
		case "m.app":
			sawApp = true
			if sawWeb {
				t.Errorf("app must be created before web")
			}
		case "m.web":
			sawWeb = true
			if !sawApp {
				t.Errorf("web created before app")
			}
		}
	}
	if !sawApp || !sawWeb {
		t.Errorf("expected create ops for both app and web: %+v", ops)
	}
}

func TestCreateGenSkipsPresentContainers(t *testing.T) {
	r := s3Resolved()
	states := []state.NodeState{
		{Node: depgraph.Node{Kind: depgraph.KindContainer, Map: "m", Config: "app"}, Present: true},
	}
	gen, _ := For(IntentCreate)
	ops, err := gen.Generate(r, states, "default", DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, op := range ops {
		if op.Kind == KindCreateContainer {
			t.Errorf("should not recreate an already-present container")
		}
	}
}

func TestStopGenOnlyTargetsRunningContainers(t *testing.T) {
	r := s3Resolved()
	states := []state.NodeState{
		{Node: depgraph.Node{Kind: depgraph.KindContainer, Map: "m", Config: "web"}, Present: true, Running: true},
		{Node: depgraph.Node{Kind: depgraph.KindContainer, Map: "m", Config: "app"}, Present: true, Running: false},
	}
	gen, _ := For(IntentStop)
	ops, err := gen.Generate(r, states, "default", DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(ops) != 1 || ops[0].ContainerName != "m.web" {
		t.Fatalf("expected exactly one stop op for web, got %+v", ops)
	}
}

func TestUpdateGenRecreatesOnMismatch(t *testing.T) {
	r := s3Resolved()
	states := []state.NodeState{
		{
			Node: depgraph.Node{Kind: depgraph.KindContainer, Map: "m", Config: "app"}, Present: true, Running: true,
			ImageMatches: false, LinksMatch: true, VolumesMatch: true, EnvMatches: true, CmdMatches: true,
			EntrypointMatches: true, ExposesMatch: true, NetworksMatch: true, LimitsMatch: true,
		},
	}
	gen, _ := For(IntentUpdate)
	ops, err := gen.Generate(r, states, "default", DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var kinds []Kind
	for _, op := range ops {
		kinds = append(kinds, op.Kind)
	}
	want := []Kind{KindStop, KindRemove, KindCreateContainer, KindStart}
	if len(kinds) != len(want) {
		t.Fatalf("got ops %v, want kinds %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("op %d = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestUpdateGenLimitsOnlyDriftPatchesHostConfig(t *testing.T) {
	r := s3Resolved()
	states := []state.NodeState{
		{
			Node: depgraph.Node{Kind: depgraph.KindContainer, Map: "m", Config: "app"}, Present: true, Running: true,
			ImageMatches: true, LinksMatch: true, VolumesMatch: true, EnvMatches: true, CmdMatches: true,
			EntrypointMatches: true, ExposesMatch: true, NetworksMatch: true, LimitsMatch: false,
		},
	}
	gen, _ := For(IntentUpdate)
	ops, err := gen.Generate(r, states, "default", DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(ops) != 1 || ops[0].Kind != KindUpdateHostConfig {
		t.Fatalf("expected a single host-config patch op, got %+v", ops)
	}
}

func TestUpdateGenSkipLimitResetSuppressesPatch(t *testing.T) {
	r := s3Resolved()
	states := []state.NodeState{
		{
			Node: depgraph.Node{Kind: depgraph.KindContainer, Map: "m", Config: "app"}, Present: true, Running: true,
			ImageMatches: true, LinksMatch: true, VolumesMatch: true, EnvMatches: true, CmdMatches: true,
			EntrypointMatches: true, ExposesMatch: true, NetworksMatch: true, LimitsMatch: false,
		},
	}
	opts := DefaultOptions()
	opts.SkipLimitReset = true
	gen, _ := For(IntentUpdate)
	ops, err := gen.Generate(r, states, "default", opts, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(ops) != 0 {
		t.Fatalf("expected no ops, got %+v", ops)
	}
}

func TestUpdateGenForceUpdateWinsOverSkipLimitReset(t *testing.T) {
	r := s3Resolved()
	states := []state.NodeState{
		{
			Node: depgraph.Node{Kind: depgraph.KindContainer, Map: "m", Config: "app"}, Present: true, Running: true,
			ImageMatches: true, LinksMatch: true, VolumesMatch: true, EnvMatches: true, CmdMatches: true,
			EntrypointMatches: true, ExposesMatch: true, NetworksMatch: true, LimitsMatch: false,
			ForceUpdate: true,
		},
	}
	opts := DefaultOptions()
	opts.SkipLimitReset = true
	gen, _ := For(IntentUpdate)
	ops, err := gen.Generate(r, states, "default", opts, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(ops) == 0 || ops[0].Kind != KindStop {
		t.Fatalf("force_update must recreate regardless of skip_limit_reset, got %+v", ops)
	}
}

func TestRunScriptBuildsCreateStartWaitLogsRemoveSequence(t *testing.T) {
	r := s3Resolved()
	node := depgraph.Node{Kind: depgraph.KindContainer, Map: "m", Config: "app"}
	ops, err := RunScript(r, node, "default", []string{"./migrate.sh"}, nil, "/scripts", nil, DefaultOptions())
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	var kinds []Kind
	for _, op := range ops {
		kinds = append(kinds, op.Kind)
	}
	want := []Kind{KindCreateContainer, KindStart, KindWait, KindLogs, KindRemove}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("op %d = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestRunScriptRemoveExistingBeforeLeadsWithRemove(t *testing.T) {
	r := s3Resolved()
	node := depgraph.Node{Kind: depgraph.KindContainer, Map: "m", Config: "app"}
	opts := DefaultOptions()
	opts.RemoveExistingBefore = true
	ops, err := RunScript(r, node, "default", []string{"./migrate.sh"}, nil, "/scripts", nil, opts)
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if len(ops) == 0 || ops[0].Kind != KindRemove {
		t.Fatalf("expected a leading remove op when RemoveExistingBefore is set, got %+v", ops)
	}
}
