package server

import (
	"time"

	"github.com/jushkitchen/jush/config"
)

// Version is stamped at build time with -ldflags "-X ...server.Version=".
var Version = "dev"

const serviceName = "jush-api"

// Config is everything New needs. FromEnv fills it from the config package.
type Config struct {
	Port        string
	StoreDriver string // "mongo" | "memory"

	MongoURI string
	MongoDB  string
	LogMongo bool

	RedisAddr     string
	RedisPassword string

	JWTSecret string
	JWTTTL    time.Duration

	AdminEmail    string
	AdminPassword string

	CORSOrigins   []string
	KafkaBrokers  []string
	KafkaTopic    string
	OTLPEndpoint  string
	StatsCacheTTL time.Duration
	RateLimit     int // requests per IP per minute
}

func FromEnv() Config {
	return Config{
		Port:          config.AppPort(),
		StoreDriver:   config.StoreDriver(),
		MongoURI:      config.MongoURI(),
		MongoDB:       config.MongoDB(),
		LogMongo:      config.LogToMongo(),
		RedisAddr:     config.RedisAddr(),
		RedisPassword: config.RedisPassword(),
		JWTSecret:     config.JWTSecret(),
		JWTTTL:        config.JWTTTL(),
		AdminEmail:    config.DefaultAdminEmail(),
		AdminPassword: config.DefaultAdminPassword(),
		CORSOrigins:   config.CORSOrigins(),
		KafkaBrokers:  config.KafkaBrokers(),
		KafkaTopic:    config.KafkaTopic(),
		OTLPEndpoint:  config.OTLPEndpoint(),
		StatsCacheTTL: config.StatsCacheTTL(),
		RateLimit:     config.RateLimit(),
	}
}
