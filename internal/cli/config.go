package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/beanbase/internal/model"
	"github.com/mesh-intelligence/beanbase/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend = "backend"
	cfgKeyDataDir = "data_dir"
	cfgKeyDebug   = "debug"
)

// Config is the parsed config.yaml.
type Config struct {
	Backend string
	DataDir string
	Debug   bool
	Models  []model.Definition

	// Path is the file the values came from; empty when none exists.
	Path string
}

// modelFile is one entry of the models list. Relations is kept as a node so
// the mapping order becomes the filter order.
type modelFile struct {
	Type         string    `yaml:"type"`
	Relations    yaml.Node `yaml:"relations,omitempty"`
	PostFields   []string  `yaml:"post_fields,omitempty"`
	PutFields    []string  `yaml:"put_fields,omitempty"`
	UniqueFields []string  `yaml:"unique_fields,omitempty"`
	Reserved     []string  `yaml:"reserved,omitempty"`
}

// configFile is the structure of config.yaml.
type configFile struct {
	Backend string      `yaml:"backend"`
	DataDir string      `yaml:"data_dir,omitempty"`
	Debug   bool        `yaml:"debug,omitempty"`
	Models  []modelFile `yaml:"models,omitempty"`
}

// loadConfig reads config.yaml from configDir with viper. A missing file is
// not an error. BEANBASE_BACKEND and BEANBASE_DEBUG override the file.
func loadConfig(configDir string) (*Config, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.BindEnv(cfgKeyBackend, "BEANBASE_BACKEND"); err != nil {
		return nil, err
	}
	if err := v.BindEnv(cfgKeyDebug, "BEANBASE_DEBUG"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, usageError{fmt.Errorf("read config: %w", err)}
		}
	}

	cfg := &Config{
		Backend: v.GetString(cfgKeyBackend),
		DataDir: v.GetString(cfgKeyDataDir),
		Debug:   v.GetBool(cfgKeyDebug),
		Path:    v.ConfigFileUsed(),
	}
	if cfg.Path == "" {
		return cfg, nil
	}

	models, err := loadModels(cfg.Path)
	if err != nil {
		return nil, usageError{fmt.Errorf("read config: %w", err)}
	}
	cfg.Models = models
	return cfg, nil
}

// loadModels decodes the models list of a config file.
func loadModels(path string) ([]model.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	defs := make([]model.Definition, 0, len(file.Models))
	for _, m := range file.Models {
		filter, err := relationsFromNode(&m.Relations)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", m.Type, err)
		}
		defs = append(defs, model.Definition{
			Type:         m.Type,
			Relations:    filter,
			PostFields:   m.PostFields,
			PutFields:    m.PutFields,
			UniqueFields: m.UniqueFields,
			Reserved:     m.Reserved,
		})
	}
	return defs, nil
}

// relationsFromNode turns a `type: kind` mapping into a Filter, keeping
// the order of the mapping.
func relationsFromNode(n *yaml.Node) (types.Filter, error) {
	if n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: relations must be a mapping of type to kind (line %d)", types.ErrInvalidArgument, n.Line)
	}

	filter := make(types.Filter, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		kind, err := types.ParseKind(val.Value)
		if err != nil {
			return nil, fmt.Errorf("relation %q (line %d): %w", key.Value, val.Line, err)
		}
		filter = append(filter, types.Rule{Type: key.Value, Kind: kind})
	}
	return filter, nil
}

// defaultConfig is written by init when config.yaml is missing.
func defaultConfig(dataDir string) configFile {
	return configFile{
		Backend: types.BackendSQLite,
		DataDir: dataDir,
	}
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	cfg := defaultConfig(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	return true, os.WriteFile(path, data, 0o644)
}
