package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8000"`
	DataPath   string `envconfig:"DATA_PATH" default:"/app/data"`
	LogPath    string `envconfig:"LOG_PATH" default:""`

	// DatabasePath overrides the default <DataPath>/kubeterm.db location.
	DatabasePath string `envconfig:"DATABASE_PATH" default:""`

	// SecretKey is the base64 Fernet key used to encrypt kubeconfigs at
	// rest. Generated and persisted under DataPath when empty.
	SecretKey string `envconfig:"SECRET_KEY" default:""`

	// Terminal settings
	HistoryLimit  int           `envconfig:"HISTORY_LIMIT" default:"1000"`
	ExecTimeout   time.Duration `envconfig:"EXEC_TIMEOUT" default:"30s"`
	ExecTargetPod string        `envconfig:"EXEC_TARGET_POD" default:""`
	ExecNamespace string        `envconfig:"EXEC_NAMESPACE" default:"default"`

	// ConnCheckInterval is how often cluster connectivity is re-tested.
	ConnCheckInterval string `envconfig:"CONN_CHECK_INTERVAL" default:"@every 2m"`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("KUBETERM", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if Cfg.DatabasePath == "" {
		Cfg.DatabasePath = Cfg.DataPath + "/kubeterm.db"
	}
	if Cfg.LogPath == "" {
		Cfg.LogPath = Cfg.DataPath + "/kubeterm.log"
	}
}
