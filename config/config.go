// Package config 负责定价服务配置的加载、校验与热更新。
// 配置来源优先级: 环境变量 (APP_ 前缀) > TOML 文件 > Default()。
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/wyfcoding/lookback/logging"
)

// DefaultSeed 是全局随机种子的默认值。
const DefaultSeed uint64 = 0x9e3779b97f4a7c15

// Config 全局顶级配置结构.
type Config struct {
	Version   string          `mapstructure:"version"   toml:"version"`
	Engine    EngineConfig    `mapstructure:"engine"    toml:"engine"`
	Greeks    GreeksConfig    `mapstructure:"greeks"    toml:"greeks"`
	Cache     CacheConfig     `mapstructure:"cache"     toml:"cache"`
	Log       LogConfig       `mapstructure:"log"       toml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   toml:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"   toml:"tracing"`
	Server    ServerConfig    `mapstructure:"server"    toml:"server"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake" toml:"snowflake"`
}

// EngineConfig 蒙特卡洛引擎参数.
type EngineConfig struct {
	Executor       string `mapstructure:"executor"         toml:"executor"         validate:"oneof=goroutine pool"`
	Seed           uint64 `mapstructure:"seed"             toml:"seed"`
	Workers        int    `mapstructure:"workers"          toml:"workers"          validate:"gte=0"` // 0 表示 GOMAXPROCS
	DefaultPaths   int    `mapstructure:"default_paths"    toml:"default_paths"    validate:"gt=0"`
	MaxPaths       int    `mapstructure:"max_paths"        toml:"max_paths"        validate:"gtefield=DefaultPaths"` // 调用方传入路径数的上限
	MaxGraphPoints int    `mapstructure:"max_graph_points" toml:"max_graph_points" validate:"gt=0"`
	PoolSize       int    `mapstructure:"pool_size"        toml:"pool_size"        validate:"gte=0"`
	PoolQueue      int    `mapstructure:"pool_queue"       toml:"pool_queue"       validate:"gte=0"`
}

// GreeksConfig 希腊值差分的路径数策略.
type GreeksConfig struct {
	Policy      string  `mapstructure:"policy"      toml:"policy"      validate:"oneof=powerlaw fixed"`
	Coefficient float64 `mapstructure:"coefficient" toml:"coefficient" validate:"gt=0"`
	Exponent    float64 `mapstructure:"exponent"    toml:"exponent"    validate:"gt=0"`
	MinPaths    int     `mapstructure:"min_paths"   toml:"min_paths"   validate:"gt=0"`
	MaxPaths    int     `mapstructure:"max_paths"   toml:"max_paths"   validate:"gtefield=MinPaths"`
	FixedPaths  int     `mapstructure:"fixed_paths" toml:"fixed_paths" validate:"required_if=Policy fixed"`
}

// CacheConfig 价格缓存参数.
type CacheConfig struct {
	TTL     time.Duration `mapstructure:"ttl"     toml:"ttl"`
	MaxMB   int           `mapstructure:"max_mb"  toml:"max_mb"  validate:"gte=0"`
	Shards  int           `mapstructure:"shards"  toml:"shards"  validate:"gte=0"`
	Enabled bool          `mapstructure:"enabled" toml:"enabled"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"        toml:"file"`
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`
	Console    bool   `mapstructure:"console"     toml:"console"`
	Compress   bool   `mapstructure:"compress"    toml:"compress"`
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Port    string `mapstructure:"port"    toml:"port"`
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// TracingConfig 分布式链路追踪（OpenTelemetry）配置.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"gte=0,lte=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// ServerConfig HTTP 服务参数.
type ServerConfig struct {
	Addr            string          `mapstructure:"addr"             toml:"addr"             validate:"required"`
	Mode            string          `mapstructure:"mode"             toml:"mode"             validate:"oneof=debug release test"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"     toml:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"    toml:"write_timeout"`
	MaxBodyBytes    int64           `mapstructure:"max_body_bytes"   toml:"max_body_bytes"   validate:"gte=0"`
	MaxConcurrent   int             `mapstructure:"max_concurrent"   toml:"max_concurrent"   validate:"gte=0"` // 0 表示不限制
	ConcurrencyWait time.Duration   `mapstructure:"concurrency_wait" toml:"concurrency_wait"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"       toml:"rate_limit"`
}

// RateLimitConfig 令牌桶限流参数，Rate 为 0 时关闭限流.
type RateLimitConfig struct {
	Rate  float64 `mapstructure:"rate"  toml:"rate"  validate:"gte=0"`
	Burst int     `mapstructure:"burst" toml:"burst" validate:"gte=0"`
}

// SnowflakeConfig 句柄 ID 生成器参数.
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time"`
	Type      string `mapstructure:"type"       toml:"type"       validate:"oneof=snowflake sonyflake sequence"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id" validate:"gte=0,lte=1023"`
}

// Default 返回无需配置文件即可使用的合法配置.
func Default() Config {
	return Config{
		Version: "dev",
		Engine: EngineConfig{
			Executor:       "goroutine",
			Seed:           DefaultSeed,
			DefaultPaths:   5_000_000,
			MaxPaths:       50_000_000,
			MaxGraphPoints: 10_000,
		},
		Greeks: GreeksConfig{
			Policy:      "powerlaw",
			Coefficient: 1,
			Exponent:    4,
			MinPaths:    10_000,
			MaxPaths:    20_000_000,
		},
		Cache: CacheConfig{TTL: 10 * time.Minute, MaxMB: 64, Shards: 64},
		Log:   LogConfig{Level: "info", MaxSize: 100, MaxBackups: 5, MaxAge: 7},
		Metrics: MetricsConfig{
			Port:    "9090",
			Path:    "/metrics",
			Enabled: true,
		},
		Tracing: TracingConfig{ServiceName: "lookback", SamplerRatio: 1},
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			MaxBodyBytes:    1 << 20,
			MaxConcurrent:   8,
			ConcurrencyWait: 10 * time.Second,
			RateLimit:       RateLimitConfig{Rate: 50, Burst: 100},
		},
		Snowflake: SnowflakeConfig{StartTime: "2024-01-01", Type: "snowflake", MachineID: 1},
	}
}

var (
	mu        sync.Mutex
	vInstance = viper.New()
	onReload  []func(*Config)
	validate  = validator.New()
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	onReload = append(onReload, hook)
}

// Validate 校验配置的字段约束.
func Validate(conf *Config) error {
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Load 读取 TOML 配置文件并叠加环境变量，path 为空时只使用默认值与环境变量.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := Validate(conf); err != nil {
		return nil, err
	}

	mu.Lock()
	vInstance = v
	mu.Unlock()
	return conf, nil
}

// Watch 监听配置文件变更，校验通过后就地更新 conf、刷新日志级别并触发回调.
// 校验失败的变更被丢弃，conf 保持原值。
func Watch(conf *Config) {
	mu.Lock()
	v := vInstance
	mu.Unlock()

	v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		next := new(Config)
		if err := v.Unmarshal(next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := Validate(next); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}

		mu.Lock()
		*conf = *next
		hooks := append([]func(*Config){}, onReload...)
		mu.Unlock()

		logging.SetLevel(next.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")
		for _, hook := range hooks {
			hook(next)
		}
	})
	v.WatchConfig()
}

// setDefaults 注册所有键的默认值，使环境变量可以覆盖文件中未出现的键.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("version", d.Version)

	v.SetDefault("engine.executor", d.Engine.Executor)
	v.SetDefault("engine.seed", d.Engine.Seed)
	v.SetDefault("engine.workers", d.Engine.Workers)
	v.SetDefault("engine.default_paths", d.Engine.DefaultPaths)
	v.SetDefault("engine.max_paths", d.Engine.MaxPaths)
	v.SetDefault("engine.max_graph_points", d.Engine.MaxGraphPoints)
	v.SetDefault("engine.pool_size", d.Engine.PoolSize)
	v.SetDefault("engine.pool_queue", d.Engine.PoolQueue)

	v.SetDefault("greeks.policy", d.Greeks.Policy)
	v.SetDefault("greeks.coefficient", d.Greeks.Coefficient)
	v.SetDefault("greeks.exponent", d.Greeks.Exponent)
	v.SetDefault("greeks.min_paths", d.Greeks.MinPaths)
	v.SetDefault("greeks.max_paths", d.Greeks.MaxPaths)
	v.SetDefault("greeks.fixed_paths", d.Greeks.FixedPaths)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.max_mb", d.Cache.MaxMB)
	v.SetDefault("cache.shards", d.Cache.Shards)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.console", d.Log.Console)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.port", d.Metrics.Port)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sampler_ratio", d.Tracing.SamplerRatio)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.max_concurrent", d.Server.MaxConcurrent)
	v.SetDefault("server.concurrency_wait", d.Server.ConcurrencyWait)
	v.SetDefault("server.rate_limit.rate", d.Server.RateLimit.Rate)
	v.SetDefault("server.rate_limit.burst", d.Server.RateLimit.Burst)

	v.SetDefault("snowflake.start_time", d.Snowflake.StartTime)
	v.SetDefault("snowflake.type", d.Snowflake.Type)
	v.SetDefault("snowflake.machine_id", d.Snowflake.MachineID)
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if err := json.Unmarshal(data, &configMap); err != nil {
		slog.Error("failed to unmarshal config for masking", "error", err)
		return
	}

	mask(configMap)

	masked, err := json.MarshalIndent(configMap, "  ", "  ")
	if err != nil {
		slog.Error("failed to marshal masked config", "error", err)
		return
	}

	slog.Info("Current effective configuration", "config", string(masked))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "token", "endpoint"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}
		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}
