package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ----------------------------
	// Firestore
	// ----------------------------
	FirestoreProjectID string `envconfig:"FIRESTORE_PROJECT_ID" required:"true"`

	// ----------------------------
	// WhatsApp session
	// ----------------------------
	SessionDBDialect string        `envconfig:"SESSION_DB_DIALECT" default:"sqlite3"`
	SessionDBDSN     string        `envconfig:"SESSION_DB_DSN" default:"file:wa-session.db?_foreign_keys=on"`
	QRImageFile      string        `envconfig:"QR_IMAGE_FILE" default:"wa-pairing.png"`
	ReconnectDelay   time.Duration `envconfig:"RECONNECT_DELAY" default:"5s"`
	SendRate         float64       `envconfig:"SEND_RATE" default:"1"`
	CountryCode      string        `envconfig:"COUNTRY_CODE" default:"62"`

	// ----------------------------
	// Queue consumer
	// ----------------------------
	JobDelayMin time.Duration `envconfig:"JOB_DELAY_MIN" default:"1s"`
	JobDelayMax time.Duration `envconfig:"JOB_DELAY_MAX" default:"3s"`

	// ----------------------------
	// Stuck-job reclaimer
	// ----------------------------
	ReclaimInterval time.Duration `envconfig:"RECLAIM_INTERVAL" default:"5m"`
	ReclaimTimeout  time.Duration `envconfig:"RECLAIM_TIMEOUT" default:"5m"`

	// ----------------------------
	// Recap schedulers
	// ----------------------------
	DailyCheckInterval   time.Duration `envconfig:"DAILY_CHECK_INTERVAL" default:"5m"`
	MonthlyCheckInterval time.Duration `envconfig:"MONTHLY_CHECK_INTERVAL" default:"1h"`
	AttendanceGrace      time.Duration `envconfig:"ATTENDANCE_GRACE" default:"1h"`
	EnqueueDelay         time.Duration `envconfig:"ENQUEUE_DELAY" default:"500ms"`
	TriggerDelay         time.Duration `envconfig:"TRIGGER_DELAY" default:"1s"`
	Timezone             string        `envconfig:"TIMEZONE" default:"Asia/Jakarta"`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Logging
	// ----------------------------
	LogFile string `envconfig:"LOG_FILE" default:""`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	err := envconfig.Process("", &cfg)
	return &cfg, err
}
