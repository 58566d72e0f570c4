package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"graphexplorer/pkg/sparql"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address" validate:"required"`
	Environment   string `yaml:"environment" validate:"oneof=development staging production"`

	// AWS configuration
	AWSRegion        string `yaml:"aws_region"`
	EventBusName     string `yaml:"event_bus_name"`
	MetricsNamespace string `yaml:"metrics_namespace"`

	// Lambda configuration
	IsLambda           bool   `yaml:"is_lambda"`
	LambdaFunctionName string `yaml:"-"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Authentication
	JWTSecret string `yaml:"-"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Feature flags
	EnableAuth         bool     `yaml:"enable_auth"`
	EnableEvents       bool     `yaml:"enable_events"`
	EnableMetrics      bool     `yaml:"enable_metrics"`
	EnableTracing      bool     `yaml:"enable_tracing"`
	EnableCORS         bool     `yaml:"enable_cors"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute" validate:"gte=0"`

	SPARQL   SPARQLConfig   `yaml:"sparql"`
	Explorer ExplorerConfig `yaml:"explorer"`
}

// SPARQLConfig configures the triple store gateway
type SPARQLConfig struct {
	Endpoint            string        `yaml:"endpoint" validate:"required,url"`
	Timeout             time.Duration `yaml:"timeout" validate:"gt=0"`
	BreakerEnabled      bool          `yaml:"breaker_enabled"`
	BreakerTimeout      time.Duration `yaml:"breaker_timeout" validate:"gte=0"`
	BreakerFailureRatio float64       `yaml:"breaker_failure_ratio" validate:"gte=0,lte=1"`
	BreakerMinRequests  uint32        `yaml:"breaker_min_requests"`
}

// ExplorerConfig is the immutable exploration setup shared by every session
type ExplorerConfig struct {
	Prefixes              *sparql.PrefixTable `yaml:"prefixes"`
	LabelPredicates       []string            `yaml:"label_predicates"`
	DescriptionPredicates []string            `yaml:"description_predicates"`
	ExpansionPredicates   []string            `yaml:"expansion_predicates" validate:"min=1,dive,required"`
	MetadataPredicates    []string            `yaml:"metadata_predicates" validate:"dive,required"`
	BlankNodeDepth        int                 `yaml:"blank_node_depth" validate:"gte=1"`
	ExpansionConcurrency  int                 `yaml:"expansion_concurrency" validate:"gte=1"`
	PredicateCacheTTL     time.Duration       `yaml:"predicate_cache_ttl" validate:"gte=0"`
}

// DefaultPrefixes returns the prefix table used when none is configured
func DefaultPrefixes() *sparql.PrefixTable {
	return sparql.NewPrefixTable(
		sparql.Prefix{Name: "dqv", Namespace: "http://www.w3.org/ns/dqv#"},
		sparql.Prefix{Name: "dct", Namespace: "http://purl.org/dc/terms/"},
		sparql.Prefix{Name: "xsd", Namespace: "http://www.w3.org/2001/XMLSchema#"},
		sparql.Prefix{Name: "skos", Namespace: "http://www.w3.org/2004/02/skos/core#"},
		sparql.Prefix{Name: "rdfs", Namespace: "http://www.w3.org/2000/01/rdf-schema#"},
	)
}

// Defaults returns the configuration before any file or environment overlay
func Defaults() *Config {
	return &Config{
		ServerAddress:      ":8080",
		Environment:        "development",
		AWSRegion:          "us-west-2",
		EventBusName:       "graphexplorer-events",
		MetricsNamespace:   "GraphExplorer",
		JWTIssuer:          "graphexplorer",
		LogLevel:           "info",
		EnableCORS:         true,
		CORSAllowedOrigins: []string{"*"},
		RateLimitPerMinute: 100,
		SPARQL: SPARQLConfig{
			Endpoint:            "http://localhost:3030/ds/sparql",
			Timeout:             30 * time.Second,
			BreakerEnabled:      true,
			BreakerTimeout:      30 * time.Second,
			BreakerFailureRatio: 0.5,
			BreakerMinRequests:  10,
		},
		Explorer: ExplorerConfig{
			Prefixes:              DefaultPrefixes(),
			LabelPredicates:       []string{"rdfs:label", "skos:prefLabel"},
			DescriptionPredicates: []string{"rdfs:comment", "dct:description"},
			ExpansionPredicates:   []string{"dqv:inDimension", "dqv:inCategory", "skos:broader"},
			BlankNodeDepth:        1,
			ExpansionConcurrency:  1,
			PredicateCacheTTL:     5 * time.Minute,
		},
	}
}

// LoadConfig layers defaults, the optional YAML file named by CONFIG_FILE
// and environment variables, in that order, then validates the result
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnvironment(); err != nil {
		return nil, err
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnvironment() error {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.MetricsNamespace = getEnv("METRICS_NAMESPACE", c.MetricsNamespace)

	// Lambda configuration
	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda)
	c.LambdaFunctionName = getEnv("AWS_LAMBDA_FUNCTION_NAME", c.LambdaFunctionName)
	if c.LambdaFunctionName != "" {
		c.IsLambda = true
	}

	// Authentication
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)

	// Logging and features
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.EnableAuth = getEnvBool("ENABLE_AUTH", c.EnableAuth)
	c.EnableEvents = getEnvBool("ENABLE_EVENTS", c.EnableEvents)
	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)

	// Triple store
	c.SPARQL.Endpoint = getEnv("SPARQL_ENDPOINT", c.SPARQL.Endpoint)
	c.SPARQL.Timeout = getEnvDuration("SPARQL_TIMEOUT", c.SPARQL.Timeout)
	c.SPARQL.BreakerEnabled = getEnvBool("SPARQL_BREAKER_ENABLED", c.SPARQL.BreakerEnabled)

	// Exploration
	if value := os.Getenv("PREFIXES"); value != "" {
		prefixes, err := sparql.ParsePrefixList(value)
		if err != nil {
			return fmt.Errorf("PREFIXES: %w", err)
		}
		c.Explorer.Prefixes = prefixes
	}
	c.Explorer.LabelPredicates = getEnvList("LABEL_PREDICATES", c.Explorer.LabelPredicates)
	c.Explorer.DescriptionPredicates = getEnvList("DESCRIPTION_PREDICATES", c.Explorer.DescriptionPredicates)
	c.Explorer.ExpansionPredicates = getEnvList("EXPANSION_PREDICATES", c.Explorer.ExpansionPredicates)
	c.Explorer.MetadataPredicates = getEnvList("METADATA_PREDICATES", c.Explorer.MetadataPredicates)
	c.Explorer.BlankNodeDepth = getEnvInt("BLANK_NODE_DEPTH", c.Explorer.BlankNodeDepth)
	c.Explorer.ExpansionConcurrency = getEnvInt("EXPANSION_CONCURRENCY", c.Explorer.ExpansionConcurrency)
	c.Explorer.PredicateCacheTTL = getEnvDuration("PREDICATE_CACHE_TTL", c.Explorer.PredicateCacheTTL)
	return nil
}

// Validate checks struct tags first, then the rules that span fields
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.IsProduction() {
		if c.EnableAuth && c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when auth is enabled in production")
		}
		if c.EnableEvents && c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required when events are enabled")
		}
	}
	if c.Explorer.Prefixes == nil {
		c.Explorer.Prefixes = sparql.NewPrefixTable()
	}

	// Every prefixed predicate must name a declared prefix
	for _, list := range [][]string{
		c.Explorer.LabelPredicates,
		c.Explorer.DescriptionPredicates,
		c.Explorer.ExpansionPredicates,
		c.Explorer.MetadataPredicates,
	} {
		for _, token := range list {
			term, ok := sparql.ParseTerm(token).(sparql.PName)
			if !ok {
				continue
			}
			if _, known := c.Explorer.Prefixes.Expand(string(term)); !known {
				return fmt.Errorf("predicate %q uses an undeclared prefix", token)
			}
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration reads a Go duration string such as "30s"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList reads a comma separated list, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
