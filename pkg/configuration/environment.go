package configuration

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/newsletter/pkg/logging"
)

const Production = "production"

const (
	MailTransportSMTP = "smtp"
	MailTransportLog  = "log"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the env files that exist, looking in the working directory first
// and then in the nearest parent directory containing go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		if root, ok := findModuleRoot(); ok {
			for _, file := range envFiles {
				candidate := filepath.Join(root, file)
				if fs.FileExists(candidate) {
					existingFiles = append(existingFiles, candidate)
				}
			}
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func findModuleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
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
	Name     string `env:"DB_NAME" envDefault:"newsletter"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	MaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"2s"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.Password, d.SSLMode,
	)
}

type DeliveryOptions struct {
	Enabled       bool          `env:"DELIVERY_ENABLED" envDefault:"true"`
	Workers       int           `env:"DELIVERY_WORKERS" envDefault:"1"`
	IdleInterval  time.Duration `env:"DELIVERY_IDLE_INTERVAL" envDefault:"10s"`
	ErrorInterval time.Duration `env:"DELIVERY_ERROR_INTERVAL" envDefault:"1s"`
	SendTimeout   time.Duration `env:"DELIVERY_SEND_TIMEOUT" envDefault:"10s"`

	ObservePendingEvery time.Duration `env:"DELIVERY_OBSERVE_PENDING_EVERY" envDefault:"10s"`
}

func (d *DeliveryOptions) Validate() error {
	if d.Workers < 1 {
		return fmt.Errorf("DELIVERY_WORKERS must be at least 1, got %d", d.Workers)
	}
	if d.IdleInterval <= 0 {
		return fmt.Errorf("DELIVERY_IDLE_INTERVAL must be positive, got %s", d.IdleInterval)
	}
	if d.ErrorInterval <= 0 {
		return fmt.Errorf("DELIVERY_ERROR_INTERVAL must be positive, got %s", d.ErrorInterval)
	}
	return nil
}

type MailOptions struct {
	Transport          string `env:"MAIL_TRANSPORT" envDefault:"log"` // smtp or log
	Host               string `env:"MAIL_HOST" envDefault:"localhost"`
	Port               int    `env:"MAIL_PORT" envDefault:"1025"`
	User               string `env:"MAIL_USER"`
	Password           string `env:"MAIL_PASSWORD"`
	SenderAddress      string `env:"MAIL_SENDER_ADDRESS" envDefault:"newsletter@localhost"`
	SenderName         string `env:"MAIL_SENDER_NAME" envDefault:"Newsletter"`
	InsecureSkipVerify bool   `env:"MAIL_INSECURE_SKIP_VERIFY" envDefault:"false"`
}

func (m *MailOptions) Validate() error {
	transport := strings.ToLower(strings.TrimSpace(m.Transport))
	switch transport {
	case MailTransportSMTP, MailTransportLog:
	default:
		return fmt.Errorf("invalid MAIL_TRANSPORT=%q (expected smtp|log)", m.Transport)
	}
	if transport == MailTransportSMTP && strings.TrimSpace(m.Host) == "" {
		return fmt.Errorf("MAIL_HOST is required when MAIL_TRANSPORT is smtp")
	}
	if strings.TrimSpace(m.SenderAddress) == "" {
		return fmt.Errorf("MAIL_SENDER_ADDRESS is required")
	}
	m.Transport = transport
	return nil
}

type LogOptions struct {
	LogPath string `env:"LOG_PATH" envDefault:""`
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"newsletter"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type Configuration struct {
	Database      DatabaseOptions
	Delivery      DeliveryOptions
	Mail          MailOptions
	Log           LogOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions

	ServerPort       int           `env:"PORT" envDefault:"8000"`
	BaseURL          string        `env:"APP_BASE_URL" envDefault:"http://localhost:8000"` // prefix of confirmation links
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	GoAppEnvironment string        `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string        `env:"-"`
	// The server will look for this header in the request, if it's not present, it will generate a random uuidv4
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// The server will look for this header in the request, if it's not present, it will use request.RemoteAddr
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.Log.Level {
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

// Load reads configuration from the given env files and the process environment.
// Use returns the process-wide instance; Load exists for commands and tests that need a fresh one.
func Load(envFiles ...string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.Delivery.Validate(); err != nil {
		return fmt.Errorf("delivery configuration error: %w", err)
	}
	if err := c.Mail.Validate(); err != nil {
		return fmt.Errorf("mail configuration error: %w", err)
	}
	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid APP_BASE_URL=%q (expected an absolute http(s) url)", c.BaseURL)
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Log.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
		c.logFile = nil
	}
}
