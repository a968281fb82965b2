package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "config.yaml"

	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"

	DispatchLocal    = "local"
	DispatchRocketMQ = "rocketmq"

	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Cfg 全局配置，由 Init 加载
var Cfg *Config

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Model    ModelConfig    `yaml:"model"`
	Upload   UploadConfig   `yaml:"upload"`
	Worker   WorkerConfig   `yaml:"worker"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	OSS      OSSConfig      `yaml:"oss"`
	JWT      JWTConfig      `yaml:"jwt"`
	Cache    CacheConfig    `yaml:"cache"`
	Status   StatusConfig   `yaml:"status"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`

	// 允许跨域访问的前端地址，为空时允许所有来源
	AllowOrigins []string `yaml:"allow_origins"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type ModelConfig struct {
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
	APIKey   string `yaml:"api_key"`

	// 仅 openai 兼容接口使用
	BaseURL string `yaml:"base_url"`

	// 为 0 时不限制模型调用时长
	Timeout time.Duration `yaml:"timeout"`
}

type UploadConfig struct {
	Dir         string `yaml:"dir"`
	MaxFileSize int64  `yaml:"max_file_size"`
}

type WorkerConfig struct {
	Num       int `yaml:"num"`
	QueueSize int `yaml:"queue_size"`
}

type DispatchConfig struct {
	Mode       string   `yaml:"mode"`
	NameServer []string `yaml:"name_server"`
}

type OSSConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Region          string        `yaml:"region"`
	BucketName      string        `yaml:"bucket_name"`
	AccessKeyID     string        `yaml:"access_key_id"`
	AccessKeySecret string        `yaml:"access_key_secret"`
	PresignExpires  time.Duration `yaml:"presign_expires"`
}

type JWTConfig struct {
	// 为空时不启用鉴权
	SecretKey string `yaml:"secret_key"`
}

type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

type StatusConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`

	// 为空时只输出到 stderr
	File string `yaml:"file"`
}

// Path 返回配置文件路径，优先使用环境变量 CONFIG_PATH
func Path() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultConfigPath
}

// Init 加载配置文件并设置全局配置
func Init() error {
	cfg, err := Load(Path())
	if err != nil {
		return err
	}
	Cfg = cfg
	return nil
}

// Load 读取 YAML 配置，文件不存在时使用默认值，随后应用环境变量覆盖
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %v", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %v", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"GEMINI_API_KEY", &c.Model.APIKey},
		{"MODEL_API_KEY", &c.Model.APIKey},
		{"DB_DSN", &c.Database.DSN},
		{"JWT_SECRET_KEY", &c.JWT.SecretKey},
		{"OSS_ACCESS_KEY_ID", &c.OSS.AccessKeyID},
		{"OSS_ACCESS_KEY_SECRET", &c.OSS.AccessKeySecret},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "5000"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.DSN == "" && c.Database.Driver == DriverSQLite {
		c.Database.DSN = "docinsight.db"
	}
	if c.Model.Provider == "" {
		c.Model.Provider = ProviderGoogleAI
	}
	if c.Model.Name == "" {
		c.Model.Name = "gemini-2.0-flash"
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "uploads"
	}
	if c.Upload.MaxFileSize <= 0 {
		c.Upload.MaxFileSize = 10 << 20
	}
	if c.Worker.Num <= 0 {
		c.Worker.Num = 4
	}
	if c.Worker.QueueSize <= 0 {
		c.Worker.QueueSize = 100
	}
	if c.Dispatch.Mode == "" {
		c.Dispatch.Mode = DispatchLocal
	}
	if c.OSS.PresignExpires <= 0 {
		c.OSS.PresignExpires = 15 * time.Minute
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = 256
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = time.Hour
	}
	if c.Status.PollInterval <= 0 {
		c.Status.PollInterval = 2 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required for driver %s", c.Database.Driver)
	}

	switch c.Model.Provider {
	case ProviderGoogleAI, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported model provider: %s", c.Model.Provider)
	}

	switch c.Dispatch.Mode {
	case DispatchLocal:
	case DispatchRocketMQ:
		if len(c.Dispatch.NameServer) == 0 {
			return fmt.Errorf("dispatch.name_server is required in rocketmq mode")
		}
	default:
		return fmt.Errorf("unsupported dispatch mode: %s", c.Dispatch.Mode)
	}

	if c.OSS.Enabled && (c.OSS.Region == "" || c.OSS.BucketName == "") {
		return fmt.Errorf("oss.region and oss.bucket_name are required when oss is enabled")
	}
	return nil
}

// Addr 返回 HTTP 服务监听地址
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
