package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	common "github.com/adedayo/checkmate-riskscan/pkg"
	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
	gitutils "github.com/adedayo/checkmate-riskscan/pkg/git"
	"github.com/adedayo/checkmate-riskscan/pkg/reputation"
	"github.com/adedayo/checkmate-riskscan/pkg/scanner"
)

const (
	CONFIG_FILE = "riskscan.yaml"

	EnvGitHubToken   = "GITHUB_TOKEN"
	EnvReputationKey = "URLSCAN_API_KEY"
)

//DefaultConfigPath is ~/.checkmate/riskscan.yaml
var DefaultConfigPath = path.Join(common.CHECKMATE_BASE_DIR, CONFIG_FILE)

//GitHub configures the hosted API fetcher
type GitHub struct {
	APIEndPoint string `yaml:"APIEndPoint,omitempty"`
	RawEndPoint string `yaml:"RawEndPoint,omitempty"`
	Token       string `yaml:"Token,omitempty"`
	//RequestsPerSecond paces API and raw content requests
	RequestsPerSecond float64 `yaml:"RequestsPerSecond,omitempty"`
}

//Reputation configures the optional URL reputation lookup
type Reputation struct {
	EndPoint string        `yaml:"EndPoint,omitempty"`
	APIKey   string        `yaml:"APIKey,omitempty"`
	Wait     time.Duration `yaml:"Wait,omitempty"`
	Timeout  time.Duration `yaml:"Timeout,omitempty"`
}

//Config is the riskscan configuration file
type Config struct {
	//Strict reports unparsable dependency manifests
	Strict bool `yaml:"Strict"`
	//MaxFileSize is the size above which files are reported instead of scanned
	MaxFileSize int `yaml:"MaxFileSize,omitempty"`
	//Deadline bounds a whole repository fetch and scan
	Deadline   time.Duration   `yaml:"Deadline,omitempty"`
	Fetch      gitutils.Limits `yaml:"Fetch,omitempty"`
	GitHub     GitHub          `yaml:"GitHub,omitempty"`
	Reputation Reputation      `yaml:"Reputation,omitempty"`
	//RulePacks are YAML files of extra rules
	RulePacks  []string                         `yaml:"RulePacks,omitempty"`
	Exclusions *diagnostics.ExcludeDefinition   `yaml:"Exclusions,omitempty"`
	Allowlist  *diagnostics.AllowlistDefinition `yaml:"Allowlist,omitempty"`
	//HistoryDir holds the scan history database
	HistoryDir string `yaml:"HistoryDir,omitempty"`
}

//Default returns the built-in configuration
func Default() *Config {
	return &Config{
		MaxFileSize: scanner.DefaultMaxFileSize,
		Deadline:    2 * time.Minute,
		Fetch:       gitutils.DefaultLimits(),
		GitHub: GitHub{
			APIEndPoint:       gitutils.DefaultAPIEndPoint,
			RawEndPoint:       gitutils.DefaultRawEndPoint,
			RequestsPerSecond: 20,
		},
		Reputation: Reputation{
			EndPoint: reputation.DefaultEndPoint,
			Wait:     reputation.DefaultWait,
			Timeout:  30 * time.Second,
		},
		HistoryDir: path.Join(common.CHECKMATE_BASE_DIR, "riskscan_db"),
	}
}

//Load reads the configuration at location, or the default location when empty, over the built-in defaults.
//A missing default file is not an error. Environment variables override credentials.
func Load(location string) (*Config, error) {
	conf := Default()
	explicit := location != ""
	if !explicit {
		location = DefaultConfigPath
	}
	location, err := homedir.Expand(location)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(location)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, conf); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", location, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}

	if token := os.Getenv(EnvGitHubToken); token != "" {
		conf.GitHub.Token = token
	}
	if key := os.Getenv(EnvReputationKey); key != "" {
		conf.Reputation.APIKey = key
	}
	if conf.HistoryDir, err = homedir.Expand(conf.HistoryDir); err != nil {
		return nil, err
	}
	for i, p := range conf.RulePacks {
		if conf.RulePacks[i], err = homedir.Expand(p); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

//Save writes the configuration as YAML
func (c *Config) Save(location string) error {
	location, err := homedir.Expand(location)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path.Dir(location), 0755); err != nil {
		return err
	}
	file, err := os.Create(location)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	defer encoder.Close()
	return encoder.Encode(c)
}
