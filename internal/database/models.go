package database

import "time"

// Cluster connection states.
const (
	ConnPending      = "pending"
	ConnConnected    = "connected"
	ConnDisconnected = "disconnected"
	ConnError        = "error"
)

type Cluster struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null;size:100" json:"name"`
	// Kubeconfig is Fernet-encrypted before storage.
	Kubeconfig          string     `gorm:"type:text;not null" json:"-"`
	IsActive            bool       `gorm:"not null;default:true" json:"is_active"`
	ConnectionStatus    string     `gorm:"not null;default:pending;size:20" json:"connection_status"`
	ConnectionError     string     `gorm:"type:text" json:"connection_error,omitempty"`
	LastConnectionCheck *time.Time `json:"last_connection_check,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Sessions []TerminalSession `gorm:"foreignKey:ClusterID" json:"-"`
}

type TerminalSession struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ClusterID    uint      `gorm:"not null;index" json:"cluster_id"`
	SessionID    string    `gorm:"uniqueIndex;not null;size:100" json:"session_id"`
	Name         string    `gorm:"not null;size:100" json:"name"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	LastActivity time.Time `gorm:"autoUpdateTime" json:"last_activity"`

	Cluster Cluster `gorm:"foreignKey:ClusterID" json:"-"`
}

type CommandRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID uint      `gorm:"not null;index" json:"-"`
	Command   string    `gorm:"type:text;not null" json:"command"`
	Output    string    `gorm:"type:text" json:"output"`
	ExitCode  int       `gorm:"not null;default:0" json:"exit_code"`
	Timestamp time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
