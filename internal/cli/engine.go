package cli

import (
	"context"
	"os"

	"github.com/cntrland/landscaper/internal/model"
	"github.com/cntrland/landscaper/internal/plan"
)

// openEngine loads the configured map and client documents and dials every
// client they reference, ready for a single command invocation.
func openEngine(ctx context.Context) (*plan.Engine, error) {
	path := mapFile
	if path == "" {
		path = cfg.Engine.MapFile
	}
	ls, err := plan.LoadLandscapeFile(path)
	if err != nil {
		return nil, err
	}

	var clientConfigs []*model.ClientConfig
	if clientFile != "" {
		data, err := os.ReadFile(clientFile)
		if err != nil {
			return nil, err
		}
		clientConfigs, err = model.LoadClients(data)
		if err != nil {
			return nil, err
		}
	}

	return plan.NewEngine(ctx, ls, clientConfigs)
}
