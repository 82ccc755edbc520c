package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kubeterm/kubeterm/internal/config"
	"github.com/kubeterm/kubeterm/internal/crypto"
	"github.com/kubeterm/kubeterm/internal/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testKubeconfig is structurally valid but points at a closed port, so
// connection tests fail fast without a real cluster.
const testKubeconfig = `apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://127.0.0.1:1
  name: test
contexts:
- context:
    cluster: test
    user: test
  name: test
current-context: test
users:
- name: test
  user: {}
`

func setupHandlersDB(t *testing.T) {
	t.Helper()
	orig := database.DB
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test DB: %v", err)
	}
	if err := db.AutoMigrate(
		&database.Cluster{},
		&database.TerminalSession{},
		&database.CommandRecord{},
		&database.Setting{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	database.DB = db
	config.Load()
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		database.DB = orig
	})
}

// createTestSession seeds a connected cluster with one terminal
// session and returns the session ID.
func createTestSession(t *testing.T, clusterName string) string {
	t.Helper()
	encrypted, err := crypto.Encrypt(testKubeconfig)
	if err != nil {
		t.Fatalf("encrypt kubeconfig: %v", err)
	}
	cluster := database.Cluster{
		Name:             clusterName,
		Kubeconfig:       encrypted,
		IsActive:         true,
		ConnectionStatus: database.ConnConnected,
	}
	if err := database.DB.Create(&cluster).Error; err != nil {
		t.Fatalf("create cluster: %v", err)
	}
	sess := database.TerminalSession{
		ClusterID: cluster.ID,
		SessionID: uuid.NewString(),
		Name:      clusterName + " Terminal",
		IsActive:  true,
	}
	if err := database.DB.Create(&sess).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess.SessionID
}

func testRouter() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthCheck)
		r.Route("/clusters", func(r chi.Router) {
			r.Post("/", CreateCluster)
			r.Get("/", ListClusters)
			r.Route("/{clusterID}", func(r chi.Router) {
				r.Post("/rename", RenameCluster)
				r.Delete("/", DeleteCluster)
				r.Get("/kubeconfig", GetKubeconfig)
				r.Post("/kubeconfig", UpdateKubeconfig)
				r.Get("/status", ClusterStatus)
			})
		})
		r.Route("/terminal/{sessionID}", func(r chi.Router) {
			r.Post("/execute", ExecuteCommand)
			r.Get("/history", SessionHistory)
			r.Post("/clear-history", ClearHistory)
		})
	})
	return r
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}
