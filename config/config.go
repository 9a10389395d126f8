/*
Package config reads sharevault configuration.

Configuration is read from the YAML file; any value can be overridden by
the SHAREVAULT_<SECTION>_<KEY> environment variable, e.g.
SHAREVAULT_STORAGE_TYPE=leveldb.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is a prefix of environment variables overriding the
// configuration.
const EnvPrefix = "SHAREVAULT"

// Config is the sharevault configuration.
type Config struct {
	Logger  Logger                   `mapstructure:"logger"`
	Storage dbconfig.DBConfiguration `mapstructure:"storage"`
	RPC     RPC                      `mapstructure:"rpc"`
	Wallet  Wallet                   `mapstructure:"wallet"`
	Vault   Vault                    `mapstructure:"vault"`
}

// Logger configures the log.
type Logger struct {
	// One of zap levels: debug, info, warn, error.
	Level string `mapstructure:"level"`
	// console or json.
	Encoding string `mapstructure:"encoding"`
}

// RPC configures connection to the Neo node serving NEP-17 assets. Empty
// endpoint means in-memory assets.
type RPC struct {
	Endpoint    string        `mapstructure:"endpoint"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Wallet configures NEP-6 wallet with accounts acting as vault callers.
type Wallet struct {
	Path     string `mapstructure:"path"`
	Password string `mapstructure:"password"`
}

// Vault configures the vault itself.
type Vault struct {
	// Name given to the vault on deployment.
	Name string `mapstructure:"name"`
	// Address of the vault custody account.
	Self string `mapstructure:"self"`
	// Hashes (LE) of the assets the vault works with.
	Assets []string `mapstructure:"assets"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")

	v.SetDefault("storage.type", dbconfig.InMemoryDB)
	v.SetDefault("storage.leveldboptions.datadirectorypath", "")
	v.SetDefault("storage.leveldboptions.readonly", false)
	v.SetDefault("storage.boltdboptions.filepath", "")
	v.SetDefault("storage.boltdboptions.readonly", false)

	v.SetDefault("rpc.endpoint", "")
	v.SetDefault("rpc.dial_timeout", 5*time.Second)

	v.SetDefault("wallet.path", "")
	v.SetDefault("wallet.password", "")

	v.SetDefault("vault.name", "")
	v.SetDefault("vault.self", "")
	v.SetDefault("vault.assets", []string{})
}

// Load reads configuration from the file at path. Empty path means defaults
// and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("logger level: %w", err)
	}
	switch c.Logger.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported logger encoding %q", c.Logger.Encoding)
	}

	switch c.Storage.Type {
	case dbconfig.InMemoryDB:
	case dbconfig.LevelDB:
		if c.Storage.LevelDBOptions.DataDirectoryPath == "" {
			return errors.New("missing LevelDB data directory")
		}
	case dbconfig.BoltDB:
		if c.Storage.BoltDBOptions.FilePath == "" {
			return errors.New("missing BoltDB file path")
		}
	default:
		return fmt.Errorf("unsupported storage type %q", c.Storage.Type)
	}

	if c.Vault.Self != "" {
		if _, err := address.StringToUint160(c.Vault.Self); err != nil {
			return fmt.Errorf("vault custody account: %w", err)
		}
	}
	if _, err := c.Vault.AssetHashes(); err != nil {
		return err
	}
	return nil
}

// SelfAccount returns the vault custody account. Zero account is returned
// if it is not configured.
func (v Vault) SelfAccount() (util.Uint160, error) {
	if v.Self == "" {
		return util.Uint160{}, nil
	}
	return address.StringToUint160(v.Self)
}

// AssetHashes decodes configured asset hashes.
func (v Vault) AssetHashes() ([]util.Uint160, error) {
	res := make([]util.Uint160, len(v.Assets))
	for i := range v.Assets {
		var err error
		if res[i], err = util.Uint160DecodeStringLE(strings.TrimPrefix(v.Assets[i], "0x")); err != nil {
			return nil, fmt.Errorf("vault asset #%d: %w", i, err)
		}
	}
	return res, nil
}

// Build returns logger writing to stderr.
func (l Logger) Build() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}

	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(lvl)
	c.Encoding = l.Encoding
	c.Sampling = nil
	if l.Encoding == "console" {
		c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return c.Build()
}
