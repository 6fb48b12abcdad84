package model

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cntrland/landscaper/internal/engineerr"
)

// LoadClients parses a clients document into the named ClientConfig set
// spec §3/§6 describes: a flat mapping of client name -> endpoint and
// capability settings, loaded separately from any one map document so the
// same client set can back several maps. Mirrors LoadMap's permissive
// decode-then-validate style (internal/validation's preference in the
// teacher, noted in internal/model/yamlload.go).
func LoadClients(data []byte) ([]*ClientConfig, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing clients document: %w", err)
	}

	out := make([]*ClientConfig, 0, len(raw))
	for name, v := range raw {
		dict, ok := v.(map[string]any)
		if !ok {
			return nil, &engineerr.ConfigurationError{Config: name, Reason: "client entry must be a map"}
		}
		cfg, err := loadClientConfig(name, dict)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func loadClientConfig(name string, dict map[string]any) (*ClientConfig, error) {
	cfg := &ClientConfig{Name: name}

	if v, ok := dict["base_url"].(string); ok {
		cfg.BaseURL = v
	}
	if v, ok := dict["timeout"].(int); ok {
		cfg.Timeout = time.Duration(v) * time.Second
	}
	if v, ok := dict["stop_timeout"].(int); ok {
		cfg.StopTimeout = time.Duration(v) * time.Second
	}
	if section, ok := dict["interfaces"].(map[string]any); ok {
		cfg.Interfaces = make(map[string]Value[string], len(section))
		for alias, v := range section {
			s, ok := v.(string)
			if !ok {
				return nil, &engineerr.ConfigurationError{Config: name, Reason: fmt.Sprintf("interfaces.%s must be a string", alias)}
			}
			cfg.Interfaces[alias] = Const(s)
		}
	}
	if section, ok := dict["interfaces_ipv6"].(map[string]any); ok {
		cfg.InterfacesIPv6 = make(map[string]Value[string], len(section))
		for alias, v := range section {
			s, ok := v.(string)
			if !ok {
				return nil, &engineerr.ConfigurationError{Config: name, Reason: fmt.Sprintf("interfaces_ipv6.%s must be a string", alias)}
			}
			cfg.InterfacesIPv6[alias] = Const(s)
		}
	}
	if section, ok := dict["auth_configs"].(map[string]any); ok {
		cfg.AuthConfigs = make(map[string]AuthConfig, len(section))
		for registry, v := range section {
			entry, ok := v.(map[string]any)
			if !ok {
				return nil, &engineerr.ConfigurationError{Config: name, Reason: fmt.Sprintf("auth_configs.%s must be a map", registry)}
			}
			auth := AuthConfig{}
			if u, ok := entry["username"].(string); ok {
				auth.Username = u
			}
			if p, ok := entry["password"].(string); ok {
				auth.Password = p
			}
			if e, ok := entry["email"].(string); ok {
				auth.Email = e
			}
			cfg.AuthConfigs[registry] = auth
		}
	}

	if v, ok := dict["supports_named_volumes"].(bool); ok {
		cfg.SupportsNamedVolumes = v
	}
	if v, ok := dict["supports_host_config_on_create"].(bool); ok {
		cfg.SupportsHostConfigOnCreate = v
	}
	if v, ok := dict["supports_stop_signal_on_create"].(bool); ok {
		cfg.SupportsStopSignalOnCreate = v
	}
	if v, ok := dict["supports_update_host_config"].(bool); ok {
		cfg.SupportsUpdateHostConfig = v
	}
	if v, ok := dict["api_version"].(string); ok {
		cfg.APIVersion = v
	}

	return cfg, nil
}

// DefaultClientConfig returns a single "default" client that dials the
// local Docker socket via the standard DOCKER_HOST/environment resolution,
// used when the caller supplies no clients document at all (spec §6: an
// empty client list means "default client").
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{Name: "default"}
}
