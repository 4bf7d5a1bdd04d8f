package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDB       = "jush"
	defaultRedisAddr     = "localhost:6379"
	defaultJWTSecret     = "change-me-in-production"
	defaultJWTTTL        = 24 * time.Hour
	defaultAppPort       = "5000"
	defaultAppEnv        = "local"
	defaultAdminEmail    = "admin@jush.com"
	defaultAdminPassword = "admin123"
	defaultKafkaTopic    = "jush.order-events"
	defaultStatsCacheTTL = 30 * time.Second
	defaultRateLimit     = 200
	defaultStoreDriver   = "mongo"
)

// keys lists every setting the process environment may override.
var keys = []string{
	"APP_ENV", "APP_PORT",
	"MONGO_URI", "MONGO_DB",
	"REDIS_ADDR", "REDIS_PASSWORD",
	"JWT_SECRET", "JWT_TTL",
	"DEFAULT_ADMIN_EMAIL", "DEFAULT_ADMIN_PASSWORD",
	"CORS_ORIGINS",
	"KAFKA_BROKERS", "KAFKA_TOPIC",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"LOG_MONGO",
	"STATS_CACHE_TTL",
	"RATE_LIMIT",
	"STORE_DRIVER",
	"APP_KEY",
}

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load reads config/app.json, config/app.yaml, .env and finally the process
// environment. Later sources win. Missing files are not an error.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", "config/app.yaml", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_ENV":                defaultAppEnv,
		"APP_PORT":               defaultAppPort,
		"MONGO_URI":              defaultMongoURI,
		"MONGO_DB":               defaultMongoDB,
		"REDIS_ADDR":             "",
		"REDIS_PASSWORD":         "",
		"JWT_SECRET":             defaultJWTSecret,
		"DEFAULT_ADMIN_EMAIL":    defaultAdminEmail,
		"DEFAULT_ADMIN_PASSWORD": defaultAdminPassword,
		"CORS_ORIGINS":           "*",
		"KAFKA_TOPIC":            defaultKafkaTopic,
	}
}

func AppEnv() string  { _ = Load(); return get("APP_ENV", defaultAppEnv) }
func AppPort() string { _ = Load(); return get("APP_PORT", defaultAppPort) }

// IsProduction reports whether APP_ENV names a production deployment.
func IsProduction() bool {
	switch strings.ToLower(AppEnv()) {
	case "production", "prod":
		return true
	}
	return false
}

func MongoURI() string { _ = Load(); return get("MONGO_URI", defaultMongoURI) }
func MongoDB() string  { _ = Load(); return get("MONGO_DB", defaultMongoDB) }

// RedisAddr is empty unless Redis is configured; callers treat empty as
// "run without Redis".
func RedisAddr() string     { _ = Load(); return get("REDIS_ADDR", "") }
func RedisPassword() string { _ = Load(); return get("REDIS_PASSWORD", "") }

func JWTSecret() string { _ = Load(); return get("JWT_SECRET", defaultJWTSecret) }

func JWTTTL() time.Duration {
	_ = Load()
	return duration("JWT_TTL", defaultJWTTTL)
}

func DefaultAdminEmail() string {
	_ = Load()
	return get("DEFAULT_ADMIN_EMAIL", defaultAdminEmail)
}

func DefaultAdminPassword() string {
	_ = Load()
	return get("DEFAULT_ADMIN_PASSWORD", defaultAdminPassword)
}

// CORSOrigins returns the comma-separated CORS_ORIGINS list.
func CORSOrigins() []string {
	_ = Load()
	return list("CORS_ORIGINS", []string{"*"})
}

func KafkaBrokers() []string { _ = Load(); return list("KAFKA_BROKERS", nil) }
func KafkaTopic() string     { _ = Load(); return get("KAFKA_TOPIC", defaultKafkaTopic) }

func OTLPEndpoint() string { _ = Load(); return get("OTEL_EXPORTER_OTLP_ENDPOINT", "") }

func LogToMongo() bool {
	_ = Load()
	b, _ := strconv.ParseBool(get("LOG_MONGO", "false"))
	return b
}

func StatsCacheTTL() time.Duration {
	_ = Load()
	return duration("STATS_CACHE_TTL", defaultStatsCacheTTL)
}

// RateLimit is the per-IP request budget per minute.
func RateLimit() int {
	_ = Load()
	n, err := strconv.Atoi(get("RATE_LIMIT", ""))
	if err != nil || n <= 0 {
		return defaultRateLimit
	}
	return n
}

// StoreDriver selects the order/admin persistence: "mongo" or "memory".
func StoreDriver() string {
	_ = Load()
	return strings.ToLower(get("STORE_DRIVER", defaultStoreDriver))
}

// AppKey seeds local encryption such as the saved CLI token. It falls back to
// JWT_SECRET.
func AppKey() string { _ = Load(); return get("APP_KEY", JWTSecret()) }

// Get reads any config key by name with an optional fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

// Set overrides a single key for the lifetime of the process.
func Set(key, value string) {
	_ = Load()
	mu.Lock()
	values[strings.ToUpper(key)] = value
	mu.Unlock()
}

func loadFromFiles(jsonPath, yamlPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(jsonPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := mergeYAMLConfig(yamlPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := mergeDotEnv(envPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}
	mergeEnviron(loaded)

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	mergeRaw(raw, out)
	return nil
}

func mergeYAMLConfig(path string, out map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	mergeRaw(raw, out)
	return nil
}

// mergeRaw copies scalar values; nested objects are ignored.
func mergeRaw(raw map[string]interface{}, out map[string]string) {
	for key, val := range raw {
		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		switch v := val.(type) {
		case string:
			out[k] = strings.TrimSpace(v)
		case bool, int, int64, float64:
			out[k] = fmt.Sprint(v)
		}
	}
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func mergeEnviron(out map[string]string) {
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}
	return fallback
}

func list(key string, fallback []string) []string {
	raw := get(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// duration accepts Go duration strings ("30s") or bare seconds ("30").
func duration(key string, fallback time.Duration) time.Duration {
	raw := get(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
