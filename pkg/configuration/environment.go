package configuration

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/pkg/logging"
	"github.com/ipsco/fleet/pkg/routing"
)

const (
	Production  = "production"
	Development = "development"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files from the working directory, falling back
// to the enclosing go.mod root when none of them exist there.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if wd, err := os.Getwd(); err == nil {
			if root, ok := findGoModRoot(wd); ok {
				existing = existingFiles(root, envFiles)
			}
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, files []string) []string {
	out := make([]string, 0, len(files))
	for _, file := range files {
		path := file
		if dir != "" {
			path = filepath.Join(dir, file)
		}
		if fs.FileExists(path) {
			out = append(out, path)
		}
	}
	return out
}

func findGoModRoot(start string) (string, bool) {
	dir := start
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"fleet"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"20"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// SecondaryDatabaseOptions configures the store holding audit, report and
// permission metadata. When Host is empty the primary database is reused.
type SecondaryDatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"SECONDARY_DB_NAME" envDefault:"fleet_secondary"`
	Host     string `env:"SECONDARY_DB_HOST"`
	Port     string `env:"SECONDARY_DB_PORT" envDefault:"5432"`
	User     string `env:"SECONDARY_DB_USER" envDefault:"postgres"`
	Password string `env:"SECONDARY_DB_PASSWORD" envDefault:"postgres"`
	MaxConns int32  `env:"SECONDARY_DB_MAX_CONNS" envDefault:"10"`
}

func (d *SecondaryDatabaseOptions) Enabled() bool {
	return strings.TrimSpace(d.Host) != ""
}

func (d *SecondaryDatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type RoutingOptions struct {
	PolicyPath        string `env:"ROUTING_POLICY_PATH"`
	SecondaryEntities string `env:"ROUTING_SECONDARY_ENTITIES"`
	PriorityEntities  string `env:"ROUTING_PRIORITY_ENTITIES"`
}

// Policy builds the immutable routing policy from file and env overrides.
func (r *RoutingOptions) Policy() (*routing.Policy, error) {
	return routing.BuildPolicy(routing.PolicyOptions{
		Path:      r.PolicyPath,
		Secondary: routing.ParseEntityList(r.SecondaryEntities),
		Priority:  routing.ParseEntityList(r.PriorityEntities),
	})
}

type AuthzOptions struct {
	ModelPath  string `env:"AUTHZ_MODEL_PATH"`
	PolicyPath string `env:"AUTHZ_POLICY_PATH"`
}

func (a *AuthzOptions) Validate() error {
	if strings.TrimSpace(a.ModelPath) != "" && strings.TrimSpace(a.PolicyPath) == "" {
		return errors.New("AUTHZ_MODEL_PATH requires AUTHZ_POLICY_PATH")
	}
	return nil
}

type SMSOptions struct {
	URL      string `env:"SMS_URL" envDefault:"https://notify.eskiz.uz"`
	Email    string `env:"SMS_EMAIL"`
	Password string `env:"SMS_PASSWORD"`
	From     string `env:"SMS_FROM" envDefault:"4546"`
	Enabled  bool   `env:"SMS_ENABLED" envDefault:"false"`
}

type WhatsAppOptions struct {
	URL     string `env:"WHATSAPP_URL"`
	Token   string `env:"WHATSAPP_TOKEN"`
	Enabled bool   `env:"WHATSAPP_ENABLED" envDefault:"false"`
}

type SMTPOptions struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
	Enabled  bool   `env:"SMTP_ENABLED" envDefault:"false"`
}

type NotificationOptions struct {
	SMS            SMSOptions
	WhatsApp       WhatsAppOptions
	SMTP           SMTPOptions
	ChannelTimeout time.Duration `env:"NOTIFY_CHANNEL_TIMEOUT" envDefault:"10s"`
}

func (n *NotificationOptions) Validate() error {
	if n.ChannelTimeout <= 0 {
		return fmt.Errorf("NOTIFY_CHANNEL_TIMEOUT must be positive, got %s", n.ChannelTimeout)
	}
	if n.SMS.Enabled && (n.SMS.Email == "" || n.SMS.Password == "") {
		return errors.New("SMS_ENABLED requires SMS_EMAIL and SMS_PASSWORD")
	}
	if n.WhatsApp.Enabled && n.WhatsApp.URL == "" {
		return errors.New("WHATSAPP_ENABLED requires WHATSAPP_URL")
	}
	if n.SMTP.Enabled && (n.SMTP.Host == "" || n.SMTP.From == "") {
		return errors.New("SMTP_ENABLED requires SMTP_HOST and SMTP_FROM")
	}
	return nil
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type TracingOptions struct {
	Enabled     bool   `env:"OTEL_TRACING_ENABLED" envDefault:"false"`
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	Insecure    bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"fleet"`
}

// OpsGuardOptions restricts the metrics endpoint in production.
type OpsGuardOptions struct {
	Enabled bool   `env:"OPS_GUARD_ENABLED" envDefault:"true"`
	CIDRs   string `env:"OPS_GUARD_CIDRS" envDefault:"127.0.0.1/32,10.0.0.0/8"`
	Token   string `env:"OPS_GUARD_TOKEN"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type Configuration struct {
	Database          DatabaseOptions
	SecondaryDatabase SecondaryDatabaseOptions
	Routing           RoutingOptions
	Authz             AuthzOptions
	Notifications     NotificationOptions
	Prometheus        PrometheusOptions
	RateLimit         RateLimitOptions
	Tracing           TracingOptions
	OpsGuard          OpsGuardOptions

	MigrationsTable  string `env:"MIGRATIONS_TABLE" envDefault:"goose_db_version"`
	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	// Looked up on every request; a random uuid is generated when absent.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	RealIPHeader    string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`
	// Carries the already authenticated actor id from the session layer.
	ActorIDHeader string `env:"ACTOR_ID_HEADER" envDefault:"X-Actor-ID"`
	CORSOrigins   string `env:"CORS_ORIGINS" envDefault:"*"`

	logFile io.Closer
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.SecondaryDatabase.Enabled() {
		c.SecondaryDatabase.Opts = c.SecondaryDatabase.ConnectionString()
	}
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

// Validate runs every option group's checks.
func (c *Configuration) Validate() error {
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.Authz.Validate(); err != nil {
		return fmt.Errorf("authz configuration error: %w", err)
	}
	if err := c.Notifications.Validate(); err != nil {
		return fmt.Errorf("notification configuration error: %w", err)
	}
	if _, err := c.Routing.Policy(); err != nil {
		return fmt.Errorf("routing configuration error: %w", err)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
