package notifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/alertd/internal/security"
)

// ChannelsConfig represents the top-level YAML channels document.
type ChannelsConfig struct {
	Channels []ChannelSpec `yaml:"channels"`
}

// LoadChannelsFromFile loads channels from a YAML file. Files ending in
// .enc are sealed and opened with passphrase. ${VAR} references are
// expanded from the environment before parsing.
func LoadChannelsFromFile(path string, passphrase []byte) ([]Channel, error) {
	data, err := security.ReadFile(path, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to read channels file: %w", err)
	}
	return LoadChannelsFromBytes([]byte(os.ExpandEnv(string(data))))
}

// LoadChannelsFromBytes loads channels from YAML bytes.
func LoadChannelsFromBytes(data []byte) ([]Channel, error) {
	var config ChannelsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse channels YAML: %w", err)
	}

	channels := make([]Channel, 0, len(config.Channels))
	for i, spec := range config.Channels {
		ch, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("invalid channel at index %d: %w", i, err)
		}
		channels = append(channels, ch)
	}
	return channels, nil
}
