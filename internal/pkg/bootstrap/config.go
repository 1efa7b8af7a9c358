package bootstrap

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config 汇总了服务运行所需的全部配置。
// YAML 文件提供基准值，环境变量覆盖（容器部署的习惯用法）。
type Config struct {
	App struct {
		Port         int    `yaml:"port"`
		LogLevel     string `yaml:"logLevel"`
		FeatureFlags struct {
			// EnablePromotions 关闭后创建订单时跳过促销评估
			EnablePromotions bool `yaml:"enablePromotions"`
		} `yaml:"featureFlags"`
	} `yaml:"app"`

	Infra struct {
		MysqlDSN string `yaml:"mysqlDsn"`
		// InventoryBackend 选择库存台账实现："redis"（Lua 原子扣减）
		// 或 "mysql"（全局分布式锁 + 事务）
		InventoryBackend string `yaml:"inventoryBackend"`
		Redis            struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers         []string `yaml:"brokers"`
			OrderEventTopic string   `yaml:"orderEventTopic"`
		} `yaml:"kafka"`
		Zookeeper struct {
			Servers []string `yaml:"servers"`
		} `yaml:"zookeeper"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			ServerAddrs string `yaml:"serverAddrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`
}

var (
	currentConfig Config
	configOnce    sync.Once
)

// LoadConfig 读取 YAML 配置文件并叠加环境变量。
// path 为空或文件不存在时退回纯环境变量 + 默认值。
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	applyDefaults(&cfg)

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	applyEnvOverrides(&cfg)

	configOnce.Do(func() { currentConfig = cfg })
	return &cfg, nil
}

// GetCurrentConfig 返回进程级配置快照
func GetCurrentConfig() Config {
	return currentConfig
}

func applyDefaults(cfg *Config) {
	cfg.App.Port = 8080
	cfg.App.LogLevel = "info"
	cfg.App.FeatureFlags.EnablePromotions = true
	cfg.Infra.MysqlDSN = "root:root@tcp(localhost:3306)/unieats?charset=utf8mb4&parseTime=True&loc=Local"
	cfg.Infra.InventoryBackend = "redis"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.OrderEventTopic = "order-events-topic"
	cfg.Infra.Zookeeper.Servers = []string{"localhost:2181"}
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
}

func applyEnvOverrides(cfg *Config) {
	cfg.Infra.MysqlDSN = getEnv("MYSQL_DSN", cfg.Infra.MysqlDSN)
	cfg.Infra.Redis.Addr = getEnv("REDIS_ADDR", cfg.Infra.Redis.Addr)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)
}

// getEnv 从环境变量读取配置并提供默认值
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
