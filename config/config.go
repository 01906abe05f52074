// Package config loads the settings a ledger client needs: network,
// operator credentials, fee limit and client tuning.
//
// Values come from built-in defaults, then an optional YAML file, then
// LEDGER_* environment variables. Callers (the CLI) may override fields
// afterwards and must call Validate before use.
//
// Example:
//
//	network: lab
//	operator:
//	  account_id: 0.0.2
//	  private_key_file: /etc/ledger/operator.key
//	max_fee: 2
//	networks:
//	  lab:
//	    - {address: /ip4/10.0.0.5/tcp/50211, node_id: 0.0.3}
//	client:
//	  call_timeout: 10s
//	  max_in_flight: 16
//	log:
//	  level: debug
//	  format: console
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"xdao.co/ledger/client"
	"xdao.co/ledger/grpcnode"
	"xdao.co/ledger/keys"
	"xdao.co/ledger/model"
	"xdao.co/ledger/network"
	"xdao.co/ledger/transaction"
)

// Environment variables read by ApplyEnv.
const (
	EnvNetwork         = "LEDGER_NETWORK"
	EnvOperatorID      = "LEDGER_OPERATOR_ID"
	EnvOperatorKey     = "LEDGER_OPERATOR_KEY"
	EnvOperatorKeyFile = "LEDGER_OPERATOR_KEY_FILE"
	EnvMaxFee          = "LEDGER_MAX_FEE"
)

type Config struct {
	Network  string                      `yaml:"network"`
	Operator Operator                    `yaml:"operator"`
	MaxFee   string                      `yaml:"max_fee"`
	Networks map[string][]EndpointConfig `yaml:"networks,omitempty"`
	Client   ClientConfig                `yaml:"client"`
	Poll     PollConfig                  `yaml:"poll"`
	Log      LogConfig                   `yaml:"log"`
}

// Operator holds the credentials of the paying account. Exactly one of
// PrivateKey and PrivateKeyFile must be set.
type Operator struct {
	AccountID      string `yaml:"account_id"`
	PrivateKey     string `yaml:"private_key,omitempty"`
	PrivateKeyFile string `yaml:"private_key_file,omitempty"`
	PublicKey      string `yaml:"public_key,omitempty"`
}

type EndpointConfig struct {
	Address string `yaml:"address"`
	NodeID  string `yaml:"node_id"`
}

type ClientConfig struct {
	CallTimeout       time.Duration `yaml:"call_timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	UnhealthyCooldown time.Duration `yaml:"unhealthy_cooldown"`
	RateLimit         float64       `yaml:"rate_limit"`
	RateBurst         int           `yaml:"rate_burst"`
	MaxInFlight       int64         `yaml:"max_in_flight"`
	MaxMsgBytes       int           `yaml:"max_msg_bytes"`
}

type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings: the local ledgerd node, a 2 hbar
// fee limit, and the standard retry and poll windows. It has no operator.
func Default() Config {
	return Config{
		Network: network.Local,
		MaxFee:  "2",
		Client: ClientConfig{
			CallTimeout:       client.DefaultCallTimeout,
			MaxAttempts:       client.DefaultRetryPolicy.MaxAttempts,
			BaseDelay:         client.DefaultRetryPolicy.BaseDelay,
			UnhealthyCooldown: client.DefaultUnhealthyCooldown,
		},
		Poll: PollConfig{
			Interval: transaction.DefaultPollOptions.Interval,
			Timeout:  transaction.DefaultPollOptions.Timeout,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load returns Default overlaid with the file at path (when path is not
// empty) and the environment. It does not validate.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, model.Wrap(model.CodeInvalidConfig, "read config", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, model.Wrap(model.CodeInvalidConfig, "parse config "+path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields from LEDGER_* variables. A key in the
// environment replaces any key file from the config file, and vice versa.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get(EnvNetwork); ok {
		c.Network = v
	}
	if v, ok := get(EnvOperatorID); ok {
		c.Operator.AccountID = v
	}
	if v, ok := get(EnvOperatorKey); ok {
		c.Operator.PrivateKey = v
		c.Operator.PrivateKeyFile = ""
	}
	if v, ok := get(EnvOperatorKeyFile); ok {
		c.Operator.PrivateKeyFile = v
		c.Operator.PrivateKey = ""
	}
	if v, ok := get(EnvMaxFee); ok {
		c.MaxFee = v
	}
}

// Validate checks everything that can be checked without reading key files
// or contacting the network.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Network) == "" {
		fail("network is required")
	}
	if c.Operator.AccountID == "" {
		fail("operator.account_id is required")
	} else if _, err := model.ParseEntityID(c.Operator.AccountID); err != nil {
		fail("operator.account_id: %v", err)
	}
	switch {
	case c.Operator.PrivateKey == "" && c.Operator.PrivateKeyFile == "":
		fail("operator.private_key or operator.private_key_file is required")
	case c.Operator.PrivateKey != "" && c.Operator.PrivateKeyFile != "":
		fail("operator.private_key and operator.private_key_file are mutually exclusive")
	}
	if fee, err := model.ParseHbar(c.MaxFee); err != nil {
		fail("max_fee: %v", err)
	} else if fee <= 0 {
		fail("max_fee must be positive")
	}
	for name, eps := range c.Networks {
		if _, err := endpointSet(eps); err != nil {
			fail("networks.%s: %v", name, err)
		}
	}
	if c.Client.MaxAttempts < 0 || c.Client.MaxInFlight < 0 || c.Client.RateLimit < 0 {
		fail("client limits must not be negative")
	}
	if c.Poll.Interval > 0 && c.Poll.Timeout > 0 && c.Poll.Interval > c.Poll.Timeout {
		fail("poll.interval %s exceeds poll.timeout %s", c.Poll.Interval, c.Poll.Timeout)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		fail("log.format must be json or console, got %q", c.Log.Format)
	}

	if len(errs) > 0 {
		return model.Wrap(model.CodeInvalidConfig, "invalid config", errors.Join(errs...))
	}
	return nil
}

func endpointSet(eps []EndpointConfig) (network.EndpointSet, error) {
	set := make(network.EndpointSet, 0, len(eps))
	for _, e := range eps {
		id, err := model.ParseEntityID(e.NodeID)
		if err != nil {
			return nil, err
		}
		set = append(set, network.Endpoint{Address: e.Address, NodeID: id})
	}
	return set, set.Validate()
}

// Registry returns the built-in networks extended with the configured ones.
func (c Config) Registry() (network.Registry, error) {
	r := network.Default()
	for name, eps := range c.Networks {
		set, err := endpointSet(eps)
		if err != nil {
			return network.Registry{}, model.Wrap(model.CodeInvalidConfig, "network "+name, err)
		}
		if r, err = r.With(name, set); err != nil {
			return network.Registry{}, err
		}
	}
	return r, nil
}

// Endpoints resolves the selected network.
func (c Config) Endpoints() (network.EndpointSet, error) {
	r, err := c.Registry()
	if err != nil {
		return nil, err
	}
	return r.Resolve(c.Network)
}

// Identity loads the operator credentials, reading the key file if one is
// configured.
func (c Config) Identity() (keys.Identity, error) {
	material := c.Operator.PrivateKey
	if c.Operator.PrivateKeyFile != "" {
		m, err := keys.ReadKeyFile(c.Operator.PrivateKeyFile)
		if err != nil {
			return keys.Identity{}, err
		}
		material = m
	}
	return keys.Load(c.Operator.AccountID, material, c.Operator.PublicKey)
}

// FeeLimit parses MaxFee.
func (c Config) FeeLimit() (model.Amount, error) {
	return model.ParseHbar(c.MaxFee)
}

// PollOptions returns the receipt poll window.
func (c Config) PollOptions() transaction.PollOptions {
	return transaction.PollOptions{Interval: c.Poll.Interval, Timeout: c.Poll.Timeout}
}

// ClientOptions translates the client section. Zero fields fall back to the
// client package defaults.
func (c Config) ClientOptions() client.Options {
	cc := c.Client
	return client.Options{
		Dialer: client.GRPCDialer(grpcnode.DialOptions{MaxMsgBytes: cc.MaxMsgBytes}),
		Retry: client.RetryPolicy{
			MaxAttempts: cc.MaxAttempts,
			BaseDelay:   cc.BaseDelay,
			Multiplier:  client.DefaultRetryPolicy.Multiplier,
		},
		CallTimeout:       cc.CallTimeout,
		UnhealthyCooldown: cc.UnhealthyCooldown,
		RateLimit:         rate.Limit(cc.RateLimit),
		RateBurst:         cc.RateBurst,
		MaxInFlight:       cc.MaxInFlight,
	}
}
