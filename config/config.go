package config

import (
	"errors"
	"fmt"
	"time"

	"gotokenbridge/types"
)

type Configuration struct {
	// Server config
	Server struct {
		Listen         string        `yaml:"listen" envconfig:"listen"`
		UseSSL         bool          `yaml:"ssl" envconfig:"ssl"`
		CertFile       string        `yaml:"cert_file" envconfig:"cert_file"`
		KeyFile        string        `yaml:"key_file" envconfig:"key_file"`
		Store          string        `yaml:"store" envconfig:"store"` // "redis" or "bolt"
		RedisPort      int           `yaml:"redis_port" envconfig:"redis_port"`
		RedisHost      string        `yaml:"redis_host" envconfig:"redis_host"`
		BoltPath       string        `yaml:"bolt_path" envconfig:"bolt_path"`
		ResumeInterval time.Duration `yaml:"resume_interval" envconfig:"resume_interval"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level" envconfig:"level"`
		JSON  bool   `yaml:"json" envconfig:"json"`
		Dir   string `yaml:"dir" envconfig:"dir"` // empty logs to stderr
	} `yaml:"log"`
	Bridge struct {
		ConfirmationDepth   uint64        `yaml:"confirmation_depth" envconfig:"confirmation_depth"`
		MaxConfirmationWait time.Duration `yaml:"max_confirmation_wait" envconfig:"max_confirmation_wait"`
		ReceiptPollInterval time.Duration `yaml:"receipt_poll_interval" envconfig:"receipt_poll_interval"`
		ReceiptTimeout      time.Duration `yaml:"receipt_timeout" envconfig:"receipt_timeout"`
	} `yaml:"bridge"`
	Source    ChainConfig `yaml:"source" envconfig:"source"`
	Target    ChainConfig `yaml:"target" envconfig:"target"`
	Telemetry struct {
		PrometheusAddr string `yaml:"prometheus_addr" envconfig:"prometheus_addr"`
	} `yaml:"telemetry"`
}

type ChainRole string

const (
	RoleSource ChainRole = "source"
	RoleTarget ChainRole = "target"
)

// ContractSet holds the manager and token manager deployed for one transfer semantics.
type ContractSet struct {
	Manager      string `yaml:"manager"`
	TokenManager string `yaml:"token_manager"`
}

type ChainConfig struct {
	Name    string    `yaml:"name" envconfig:"name"`
	Role    ChainRole `yaml:"role" envconfig:"role"`
	ChainID int64     `yaml:"chain_id" envconfig:"chain_id"`
	RPCList []string  `yaml:"rpc" envconfig:"rpc"`
	WSURL   string    `yaml:"ws" envconfig:"ws"`
	// EIP-1559 fee model, otherwise legacy gas price
	DynamicFees      bool          `yaml:"dynamic_fees" envconfig:"dynamic_fees"`
	GasFeeMultiplier uint64        `yaml:"gas_fee_multiplier" envconfig:"gas_fee_multiplier"` // percent
	DefaultGasLimit  uint64        `yaml:"default_gas_limit" envconfig:"default_gas_limit"`
	Confirmations    uint64        `yaml:"confirmations" envconfig:"confirmations"`
	PollInterval     time.Duration `yaml:"poll_interval" envconfig:"poll_interval"`
	// important private stuff, keep in env
	MasterKey   string   `yaml:"master_key" envconfig:"master_key"`
	AccountKeys []string `yaml:"account_keys" envconfig:"account_keys"`

	Contracts map[types.TransferSemantics]ContractSet `yaml:"contracts" ignored:"true"`
}

const (
	DefaultConfirmationDepth   = 6
	DefaultMaxConfirmationWait = 30 * time.Minute
	DefaultReceiptPollInterval = 2 * time.Second
	DefaultReceiptTimeout      = 10 * time.Minute
	DefaultResumeInterval      = 30 * time.Second
	DefaultPollInterval        = 5 * time.Second
	DefaultGasFeeMultiplier    = 120
	DefaultGasLimit            = 500_000
	DefaultListen              = ":8080"
)

func (c *Configuration) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
		if c.Server.UseSSL {
			c.Server.Listen = ":443"
		}
	}

	if c.Server.Store == "" {
		c.Server.Store = "redis"
	}

	if c.Server.ResumeInterval == 0 {
		c.Server.ResumeInterval = DefaultResumeInterval
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Bridge.ConfirmationDepth == 0 {
		c.Bridge.ConfirmationDepth = DefaultConfirmationDepth
	}

	if c.Bridge.MaxConfirmationWait == 0 {
		c.Bridge.MaxConfirmationWait = DefaultMaxConfirmationWait
	}

	if c.Bridge.ReceiptPollInterval == 0 {
		c.Bridge.ReceiptPollInterval = DefaultReceiptPollInterval
	}

	if c.Bridge.ReceiptTimeout == 0 {
		c.Bridge.ReceiptTimeout = DefaultReceiptTimeout
	}

	for _, ch := range []*ChainConfig{&c.Source, &c.Target} {
		if ch.GasFeeMultiplier == 0 {
			ch.GasFeeMultiplier = DefaultGasFeeMultiplier
		}

		if ch.DefaultGasLimit == 0 {
			ch.DefaultGasLimit = DefaultGasLimit
		}

		if ch.Confirmations == 0 {
			ch.Confirmations = c.Bridge.ConfirmationDepth
		}

		if ch.PollInterval == 0 {
			ch.PollInterval = DefaultPollInterval
		}
	}

	if c.Source.Role == "" {
		c.Source.Role = RoleSource
	}

	if c.Target.Role == "" {
		c.Target.Role = RoleTarget
	}
}

func (c *Configuration) Validate() error {
	switch c.Server.Store {
	case "redis":
		if c.Server.RedisHost == "" || c.Server.RedisPort == 0 {
			return errors.New("redis store requires server.redis_host and server.redis_port")
		}
	case "bolt":
		if c.Server.BoltPath == "" {
			return errors.New("bolt store requires server.bolt_path")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Server.Store)
	}

	if c.Source.Role != RoleSource || c.Target.Role != RoleTarget {
		return errors.New("source chain must have role source and target chain role target")
	}

	for _, ch := range []*ChainConfig{&c.Source, &c.Target} {
		if err := ch.Validate(); err != nil {
			return err
		}
	}

	if c.Source.Name == c.Target.Name {
		return fmt.Errorf("source and target chains share the name %q", c.Source.Name)
	}

	return nil
}

func (ch *ChainConfig) Validate() error {
	if ch.Name == "" {
		return errors.New("chain name is empty")
	}

	if ch.ChainID == 0 {
		return fmt.Errorf("chain %s: chain_id is required", ch.Name)
	}

	if len(ch.RPCList) == 0 && ch.WSURL == "" {
		return fmt.Errorf("chain %s: at least one rpc endpoint is required", ch.Name)
	}

	if ch.MasterKey == "" {
		return fmt.Errorf("chain %s: master_key is required", ch.Name)
	}

	if len(ch.Contracts) == 0 {
		return fmt.Errorf("chain %s: no manager contracts configured", ch.Name)
	}

	for sem, set := range ch.Contracts {
		if !sem.Valid() {
			return fmt.Errorf("chain %s: unknown transfer semantics %q", ch.Name, sem)
		}

		if types.IsZeroAddress(set.Manager) {
			return fmt.Errorf("chain %s: %s manager address is missing", ch.Name, sem)
		}

		if ch.Role == RoleTarget && types.IsZeroAddress(set.TokenManager) {
			return fmt.Errorf("chain %s: %s token manager address is missing", ch.Name, sem)
		}
	}

	return nil
}
