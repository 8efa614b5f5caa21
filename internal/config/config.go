package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	// Environment 为 "production" 时才启用备用文案模型链
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	DBType     string `env:"DBType" envDefault:"sqlite"`
	DSNURL     string `env:"DSN_URL" envDefault:""`
	DBUser     string `env:"DBUser" envDefault:""`
	DBPassword string `env:"DBPassword" envDefault:""`
	DBAddr     string `env:"DBAddr" envDefault:""`
	DBName     string `env:"DBName" envDefault:"postpilot"`
	DBPath     string `env:"DBPath" envDefault:"datas/postpilot.db"`
	DBPort     string `env:"DBPort" envDefault:"3306"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:""`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	OpenAIAPIKey     string `env:"OPENAI_API_KEY" envDefault:""`
	GeminiAPIKey     string `env:"GEMINI_API_KEY" envDefault:""`
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY" envDefault:""`
	StabilityAPIKey  string `env:"STABILITY_API_KEY" envDefault:""`
	ReplicateAPIKey  string `env:"REPLICATE_API_TOKEN" envDefault:""`
	FalAPIKey        string `env:"FAL_KEY" envDefault:""`

	// StabilityProxyURL 经由中转代理访问 Stability，直连地址作为网络层兜底
	StabilityProxyURL  string `env:"STABILITY_PROXY_URL" envDefault:""`
	StabilityDirectURL string `env:"STABILITY_DIRECT_URL" envDefault:"https://api.stability.ai"`

	BypassImageCache bool `env:"BYPASS_IMAGE_CACHE" envDefault:"false"`

	JWTSecret            string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer            string `env:"JWT_ISSUER" envDefault:"postpilot"`
	JWTExpirationMinutes int    `env:"JWT_EXPIRATION_MINUTES" envDefault:"1440"`
}

// IsProduction reports whether the deployment runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func ParseConfig() (Config, error) {
	var Conf Config
	err := env.Parse(&Conf)
	if err != nil {
		logrus.WithError(err).Error("env.Parse error")
		return Config{}, err
	}
	logrus.Debugf("%#v\n", Conf)
	return Conf, nil
}
