package digitalocean

import (
	"fmt"

	"github.com/sahilchouksey/lesson-planner/config"
)

// SpacesConfigFromEnv builds the Spaces configuration from loaded environment variables
func SpacesConfigFromEnv(env *config.EnvironmentVariable) (*SpacesConfig, error) {
	cfg := &SpacesConfig{
		AccessKey: env.DO_SPACES_ACCESS_KEY,
		SecretKey: env.DO_SPACES_SECRET_KEY,
		Bucket:    env.DO_SPACES_BUCKET,
		Region:    env.DO_SPACES_REGION,
		Endpoint:  env.DO_SPACES_ENDPOINT,
	}

	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("DO_SPACES_BUCKET and DO_SPACES_REGION must be configured")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("DO_SPACES_ACCESS_KEY and DO_SPACES_SECRET_KEY must be configured")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Region)
	}
	return cfg, nil
}

// NewSpacesClientFromEnv creates a SpacesClient from environment variables
func NewSpacesClientFromEnv(env *config.EnvironmentVariable) (*SpacesClient, error) {
	cfg, err := SpacesConfigFromEnv(env)
	if err != nil {
		return nil, err
	}
	return NewSpacesClient(*cfg)
}
