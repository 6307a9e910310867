package config

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Retarget   RetargetOptions `yaml:"retarget"`
	Mapping    MappingOptions  `yaml:"mapping"`
	Playback   PlaybackOptions `yaml:"playback"`
	MappingDir string          `yaml:"mappingDir"`
	LogLevel   string          `yaml:"logLevel"`
}

func Default() Config {
	return Config{
		Retarget:   DefaultRetargetOptions(),
		Playback:   DefaultPlaybackOptions(),
		MappingDir: "mappings",
		LogLevel:   "info",
	}
}

var (
	currentLock sync.RWMutex
	current     = Default()
)

func Get() Config {
	currentLock.RLock()
	defer currentLock.RUnlock()
	return current
}

func Set(c Config) {
	currentLock.Lock()
	defer currentLock.Unlock()
	current = c
}

// Load reads a yaml config on top of the defaults; fields missing in the file keep default values.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "Cannot read config %q", path)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, errors.Wrapf(err, "Unmarshaling config %q", path)
	}
	if c.Playback.FrameRate <= 0 {
		c.Playback.FrameRate = DefaultPlaybackOptions().FrameRate
	}
	return c, nil
}

func Save(path string, c Config) error {
	data, err := yaml.Marshal(&c)
	if err != nil {
		return errors.Wrapf(err, "Failed to marshal config")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0666), "Cannot write config %q", path)
}
