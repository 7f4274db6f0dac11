package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kasuganosora/miniworld/server/game/world"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig   `mapstructure:"server"`
	Data         DataConfig     `mapstructure:"data"`
	World        WorldConfig    `mapstructure:"world"`
	RolesFile    string         `mapstructure:"roles_file"`
	PersonasFile string         `mapstructure:"personas_file"`
	Database     DatabaseConfig `mapstructure:"database"`
	Cache        CacheConfig    `mapstructure:"cache"`
	Security     SecurityConfig `mapstructure:"security"`
	Chat         ChatConfig     `mapstructure:"chat"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
}

type DataConfig struct {
	Root string `mapstructure:"root"`
}

type WorldConfig struct {
	ChunkSize         int           `mapstructure:"chunk_size"`
	TickTreeGrowSteps int           `mapstructure:"tick_tree_grow_steps"`
	TickInterval      time.Duration `mapstructure:"tick_interval"` // 0 disables the periodic tick
	Year              int           `mapstructure:"year"`
	Season            string        `mapstructure:"season"`
	Location          string        `mapstructure:"location"`
	Events            []string      `mapstructure:"events"`
	Seed              int64         `mapstructure:"seed"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // none | memory | sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	LocalPubSubBuf int    `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// AdminIPs restricts /api/admin to these addresses or CIDR ranges.
	AdminIPs []string `mapstructure:"admin_ips"`
}

type ChatConfig struct {
	HistorySize int `mapstructure:"history_size"`
	// ReplyTemplates may use {role}, {prompt} and {token}.
	ReplyTemplates []string `mapstructure:"reply_templates"`
}

// Load reads config from the given YAML file path. An empty path yields the
// defaults, still subject to MINIWORLD_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MINIWORLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.admin_key", "")
	v.SetDefault("data.root", "./data")
	v.SetDefault("world.chunk_size", 32)
	v.SetDefault("world.tick_tree_grow_steps", 3)
	v.SetDefault("world.tick_interval", "0s")
	v.SetDefault("world.year", 302)
	v.SetDefault("world.season", "spring")
	v.SetDefault("world.location", "royal capital outskirts")
	v.SetDefault("world.events", []string{
		"the holy seal is lost and the kingdom is in turmoil",
		"the border mana furnace keeps misfiring",
	})
	v.SetDefault("world.seed", 42)
	v.SetDefault("roles_file", "")
	v.SetDefault("personas_file", "")
	v.SetDefault("database.mode", "none")
	v.SetDefault("database.sqlite_path", "./data/audit.db")
	v.SetDefault("database.mysql_dsn", "")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.rate_limit_rps", 20)
	v.SetDefault("security.rate_limit_burst", 40)
	v.SetDefault("security.allowed_origins", []string{})
	v.SetDefault("security.admin_ips", []string{})
	v.SetDefault("chat.history_size", 100)
	v.SetDefault("chat.reply_templates", []string{
		"{role} checks the gear: under {prompt} we need to push on together ({token}).",
		"{role} looks into the distance: working toward {prompt} means minding the supply lines ({token}).",
		"{role} adds with a smile: while we carry out {prompt}, keep each other informed ({token}).",
	})

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the world cannot run with.
func (c *Config) Validate() error {
	if c.World.ChunkSize < 1 || c.World.ChunkSize > 256 {
		return fmt.Errorf("config: world.chunk_size %d out of [1,256]", c.World.ChunkSize)
	}
	if c.World.TickTreeGrowSteps < 1 || c.World.TickTreeGrowSteps > world.MaxGrowth {
		return fmt.Errorf("config: world.tick_tree_grow_steps must be in [1,%d], got %d", world.MaxGrowth, c.World.TickTreeGrowSteps)
	}
	if c.World.TickInterval < 0 {
		return fmt.Errorf("config: world.tick_interval must not be negative")
	}
	if c.Data.Root == "" {
		return fmt.Errorf("config: data.root is required")
	}
	if c.Chat.HistorySize < 0 {
		return fmt.Errorf("config: chat.history_size must not be negative")
	}
	if len(c.Chat.ReplyTemplates) == 0 {
		return fmt.Errorf("config: chat.reply_templates needs at least one template")
	}
	return nil
}
