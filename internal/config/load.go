package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "EMBUTIDOS"

// 允许通过环境变量覆盖的键，主要是各类密钥与连接串
var envKeys = []string{
	"server.host", "server.port",
	"adminserver.host", "adminserver.port",
	"mysql.dsn",
	"redis.addr",
	"rabbitmq.url", "rabbitmq.queue",
	"jwt.secret", "jwt.ttl",
	"session.idletimeout",
	"paypal.clientid", "paypal.secret", "paypal.mode",
	"stripe.secretkey", "stripe.baseurl", "stripe.domain",
	"mail.host", "mail.port", "mail.username", "mail.password", "mail.from", "mail.adminto",
	"report.defaultminstock", "report.alertat", "report.timezone",
	"log.level", "log.development",
}

// Load 在默认配置之上依次叠加 .env、配置文件与环境变量。
// path 为空或文件不存在时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// MustLoad 同 Load，失败直接退出，供 cmd 使用
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
