package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var valid = validator.New()

// ErrInvalidConfig 配置非法（启动阶段返回，不进入采集循环）
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix 环境变量前缀，例：VARNISH_AGENT_MONITOR_INTERVAL
const EnvPrefix = "VARNISH_AGENT"

// Config 全局配置结构体（聚合所有核心模块）
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server" comment:"HTTP服务配置"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor" comment:"Varnish采集配置"`
	Queue   QueueConfig   `yaml:"queue" mapstructure:"queue" comment:"投递队列配置"`
	Sink    SinkConfig    `yaml:"sink" mapstructure:"sink" comment:"输出配置"`
	Log     ZapLogConfig  `yaml:"log" mapstructure:"log" comment:"日志配置"`
}

// ServerConfig HTTP服务配置（超时统一为time.Duration，支持"30s"解析）
type ServerConfig struct {
	Addr                 string        `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port" comment:"HTTP监听地址（格式：ip:port）"`
	ReadTimeout          time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"required,gt=0" comment:"读取超时时间（如30s）"`
	WriteTimeout         time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"required,gt=0" comment:"写入超时时间（如30s）"`
	IdleTimeout          time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"required,gt=0" comment:"空闲连接超时时间（如60s）"`
	EnableProcessMetrics bool          `yaml:"enable_process_metrics" mapstructure:"enable_process_metrics" comment:"是否暴露进程指标"`
}

// MonitorConfig Varnish 采集配置
type MonitorConfig struct {
	Interval       time.Duration       `yaml:"interval" mapstructure:"interval" validate:"required,gt=0" comment:"采集间隔（如60s）"`
	Hostname       string              `yaml:"hostname" mapstructure:"hostname" comment:"上报主机名，为空时取本机主机名"`
	Namespace      string              `yaml:"namespace" mapstructure:"namespace" validate:"required" comment:"item key 前缀"`
	Path           string              `yaml:"path" mapstructure:"path" comment:"varnishd 路径，仅用于版本探测"`
	Workdir        string              `yaml:"workdir" mapstructure:"workdir" validate:"required" comment:"外部命令工作目录"`
	CommandTimeout time.Duration       `yaml:"command_timeout" mapstructure:"command_timeout" validate:"required,gt=0" comment:"外部命令超时"`
	Commands       CommandsConfig      `yaml:"commands" mapstructure:"commands"`
	ResponseCheck  ResponseCheckConfig `yaml:"response_check" mapstructure:"response_check"`
}

// CommandsConfig 外部命令（通过 sh -c 执行，允许管道）
type CommandsConfig struct {
	Stat        string `yaml:"stat" mapstructure:"stat" validate:"required"`
	BanCount    string `yaml:"ban_count" mapstructure:"ban_count" validate:"required" comment:"输出 ban.list 原文或已计数的整数"`
	StorageList string `yaml:"storage_list" mapstructure:"storage_list" validate:"required" comment:"输出 storage.list 原文，文件型存储在程序内过滤"`
}

// ResponseCheckConfig HTTP 响应检查
type ResponseCheckConfig struct {
	Enable  bool              `yaml:"enable" mapstructure:"enable"`
	Host    string            `yaml:"host" mapstructure:"host"`
	Port    int               `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	URI     string            `yaml:"uri" mapstructure:"uri"`
	VHost   string            `yaml:"vhost" mapstructure:"vhost"`
	UAgent  string            `yaml:"uagent" mapstructure:"uagent"`
	SSL     bool              `yaml:"ssl" mapstructure:"ssl"`
	Timeout time.Duration     `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// Scheme http/https
func (r *ResponseCheckConfig) Scheme() string {
	if r.SSL {
		return "https"
	}
	return "http"
}

// QueueConfig 投递队列
type QueueConfig struct {
	Size int `yaml:"size" mapstructure:"size" validate:"gt=0"`
}

// SinkConfig 队列消费端配置
type SinkConfig struct {
	BatchSize     int           `yaml:"batch_size" mapstructure:"batch_size" validate:"gt=0"`
	FlushInterval time.Duration `yaml:"flush_interval" mapstructure:"flush_interval" validate:"gt=0"`
	Zabbix        ZabbixConfig  `yaml:"zabbix" mapstructure:"zabbix"`
}

// ZabbixConfig Zabbix trapper 输出
type ZabbixConfig struct {
	Enable          bool          `yaml:"enable" mapstructure:"enable"`
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	InitialInterval time.Duration `yaml:"initial_interval" mapstructure:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `yaml:"max_interval" mapstructure:"max_interval" validate:"gt=0"`
	MaxElapsedTime  time.Duration `yaml:"max_elapsed_time" mapstructure:"max_elapsed_time" validate:"gt=0"`
}

// ZapLogConfig 日志配置
type ZapLogConfig struct {
	Level     string `yaml:"level" mapstructure:"level" validate:"required,oneof=debug info warn error dpanic panic fatal" comment:"日志级别" default:"info"`
	Format    string `yaml:"format" mapstructure:"format" validate:"required,oneof=json console" comment:"控制台日志格式（json/console）" default:"console"`
	Path      string `yaml:"path" mapstructure:"path" validate:"required" comment:"日志存储路径" default:"./logs"`
	MaxBackup int    `yaml:"max_backup" mapstructure:"max_backup" validate:"gte=0" comment:"日志文件最大保留个数，>0 时优先于 max_age" default:"0"`
	MaxAge    int    `yaml:"max_age" mapstructure:"max_age" validate:"gte=0" comment:"日志文件最大保存天数" default:"7"`

	BannerColor string `yaml:"banner_color" mapstructure:"banner_color" comment:"启动 banner 颜色（red/green/yellow/blue/cyan，其他值不着色）"`
}

// NewDefaultConfig 创建默认配置（所有字段兜底，避免空指针/非法值）
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "0.0.0.0:9113",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Monitor: MonitorConfig{
			Interval:       60 * time.Second,
			Namespace:      "varnish",
			Path:           "/usr/sbin/varnishd",
			Workdir:        "/tmp",
			CommandTimeout: 10 * time.Second,
			Commands: CommandsConfig{
				Stat:        "varnishstat -1",
				BanCount:    "sudo varnishadm ban.list",
				StorageList: "sudo varnishadm storage.list",
			},
			ResponseCheck: ResponseCheckConfig{
				Enable:  false,
				Host:    "127.0.0.1",
				Port:    80,
				URI:     "/",
				SSL:     false,
				Timeout: 3 * time.Second,
				Headers: map[string]string{},
			},
		},
		Queue: QueueConfig{
			Size: 4096,
		},
		Sink: SinkConfig{
			BatchSize:     250,
			FlushInterval: time.Second,
			Zabbix: ZabbixConfig{
				Enable:          false,
				Addr:            "127.0.0.1:10051",
				Timeout:         5 * time.Second,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
				MaxElapsedTime:  30 * time.Second,
			},
		},
		Log: ZapLogConfig{
			Level:       "info",
			Format:      "console",
			Path:        "./logs",
			MaxBackup:   0,
			MaxAge:      7,
			BannerColor: "blue",
		},
	}
}

// LoadConfigWithCli 支持 time.Duration，(Flags + YAML + ENV)
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// 2. 解析配置文件 (--config)
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file %s: %w", configFile, err)
			}
		} else if cmd.Flags().Changed("config") {
			return nil, fmt.Errorf("config file %s: %w", configFile, err)
		}
	}
	return load(v)
}

// LoadFile 仅从 YAML 文件加载（默认值兜底）
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()

	// 3. 绑定环境变量 ENV -> Viper （VARNISH_AGENT_SERVER_ADDR -> server.addr）
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. 解码反序列化到结构体（支持 time.Duration）
	decoderConfig := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Monitor.Hostname == "" {
		cfg.Monitor.Hostname = DefaultHostname()
	}

	// 5. 校验配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultHostname 取本机主机名（gopsutil 优先，失败回退 os.Hostname）
func DefaultHostname() string {
	if info, err := host.Info(); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	name, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return name
}

// Validate 配置校验
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// 	1,校验Server服务配置
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// 	2，校验采集配置
	if err := c.Monitor.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// 	3，校验输出配置
	if err := c.Sink.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// 	4，校验日志配置
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
