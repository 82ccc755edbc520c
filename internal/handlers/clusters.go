package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kubeterm/kubeterm/internal/crypto"
	"github.com/kubeterm/kubeterm/internal/database"
	"github.com/kubeterm/kubeterm/internal/kube"
)

const connTestTimeout = 10 * time.Second

// CreateCluster registers a cluster from a pasted kubeconfig, tests
// the connection, and opens the first terminal session on success.
// POST /api/v1/clusters
func CreateCluster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Kubeconfig string `json:"kubeconfig"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	kubeconfig := strings.TrimSpace(req.Kubeconfig)
	if name == "" || kubeconfig == "" {
		apiFail(w, "Both cluster name and kubeconfig are required")
		return
	}
	if err := kube.ValidateKubeconfig(kubeconfig); err != nil {
		apiFail(w, "Invalid kubeconfig format: "+err.Error())
		return
	}

	encrypted, err := crypto.Encrypt(kubeconfig)
	if err != nil {
		log.Printf("[clusters] encrypt kubeconfig: %v", err)
		apiFail(w, "Server error: could not store kubeconfig")
		return
	}
	cluster := database.Cluster{
		Name:             name,
		Kubeconfig:       encrypted,
		IsActive:         true,
		ConnectionStatus: database.ConnPending,
	}
	if err := database.DB.Create(&cluster).Error; err != nil {
		log.Printf("[clusters] create cluster: %v", err)
		apiFail(w, "Server error: could not save cluster")
		return
	}

	if connErr := testAndRecordConnection(r.Context(), &cluster, kubeconfig); connErr != "" {
		apiFail(w, "Failed to connect to cluster: "+connErr)
		return
	}

	sess := database.TerminalSession{
		ClusterID: cluster.ID,
		SessionID: uuid.NewString(),
		Name:      name + " Terminal",
		IsActive:  true,
	}
	if err := database.DB.Create(&sess).Error; err != nil {
		log.Printf("[clusters] create session: %v", err)
		apiFail(w, "Server error: could not create terminal session")
		return
	}

	log.Printf("[clusters] cluster %q connected, session %s", name, sess.SessionID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"cluster_id": cluster.ID,
		"session_id": sess.SessionID,
		"message":    "Cluster connected successfully!",
	})
}

// testAndRecordConnection probes the cluster and persists the result.
// It returns the user-facing error string, empty when connected.
func testAndRecordConnection(ctx context.Context, cluster *database.Cluster, kubeconfig string) string {
	testCtx, cancel := context.WithTimeout(ctx, connTestTimeout)
	defer cancel()

	connErr, err := kube.TestConnection(testCtx, kubeconfig)
	now := time.Now()
	cluster.LastConnectionCheck = &now
	if err != nil {
		cluster.ConnectionStatus = database.ConnError
		cluster.ConnectionError = connErr
	} else {
		cluster.ConnectionStatus = database.ConnConnected
		cluster.ConnectionError = ""
	}
	if dbErr := database.DB.Save(cluster).Error; dbErr != nil {
		log.Printf("[clusters] save connection status for %d: %v", cluster.ID, dbErr)
	}
	return connErr
}

// ListClusters returns active clusters with their open sessions.
// GET /api/v1/clusters
func ListClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := database.ActiveClusters()
	if err != nil {
		apiFail(w, "Failed to list clusters")
		return
	}

	type sessionInfo struct {
		ID           uint      `json:"id"`
		SessionID    string    `json:"session_id"`
		Name         string    `json:"name"`
		LastActivity time.Time `json:"last_activity"`
	}
	type clusterInfo struct {
		ID               uint          `json:"id"`
		Name             string        `json:"name"`
		ConnectionStatus string        `json:"connection_status"`
		CreatedAt        time.Time     `json:"created_at"`
		Sessions         []sessionInfo `json:"sessions"`
	}

	out := make([]clusterInfo, 0, len(clusters))
	for _, c := range clusters {
		info := clusterInfo{
			ID:               c.ID,
			Name:             c.Name,
			ConnectionStatus: c.ConnectionStatus,
			CreatedAt:        c.CreatedAt,
			Sessions:         []sessionInfo{},
		}
		for _, s := range c.Sessions {
			info.Sessions = append(info.Sessions, sessionInfo{
				ID:           s.ID,
				SessionID:    s.SessionID,
				Name:         s.Name,
				LastActivity: s.LastActivity,
			})
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"clusters": out,
	})
}

func clusterFromURL(w http.ResponseWriter, r *http.Request) (*database.Cluster, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "clusterID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cluster ID")
		return nil, false
	}
	var cluster database.Cluster
	if err := database.DB.Where("is_active = ?", true).First(&cluster, id).Error; err != nil {
		apiFail(w, "Cluster not found")
		return nil, false
	}
	return &cluster, true
}

// RenameCluster updates the display name.
// POST /api/v1/clusters/{clusterID}/rename
func RenameCluster(w http.ResponseWriter, r *http.Request) {
	cluster, ok := clusterFromURL(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		apiFail(w, "Cluster name is required")
		return
	}
	if err := database.DB.Model(cluster).Update("name", name).Error; err != nil {
		apiFail(w, "Failed to rename cluster")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "name": name})
}

// DeleteCluster soft-deletes a cluster and deactivates its sessions.
// DELETE /api/v1/clusters/{clusterID}
func DeleteCluster(w http.ResponseWriter, r *http.Request) {
	cluster, ok := clusterFromURL(w, r)
	if !ok {
		return
	}
	if err := database.DB.Model(cluster).Update("is_active", false).Error; err != nil {
		apiFail(w, "Failed to delete cluster")
		return
	}
	if err := database.DB.Model(&database.TerminalSession{}).
		Where("cluster_id = ?", cluster.ID).
		Update("is_active", false).Error; err != nil {
		log.Printf("[clusters] deactivate sessions for %d: %v", cluster.ID, err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// GetKubeconfig returns the decrypted kubeconfig for editing.
// GET /api/v1/clusters/{clusterID}/kubeconfig
func GetKubeconfig(w http.ResponseWriter, r *http.Request) {
	cluster, ok := clusterFromURL(w, r)
	if !ok {
		return
	}
	kubeconfig, err := crypto.Decrypt(cluster.Kubeconfig)
	if err != nil {
		log.Printf("[clusters] decrypt kubeconfig for %d: %v", cluster.ID, err)
		apiFail(w, "Cluster credentials unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"kubeconfig": kubeconfig,
	})
}

// UpdateKubeconfig replaces the stored kubeconfig and re-tests the
// connection. POST /api/v1/clusters/{clusterID}/kubeconfig
func UpdateKubeconfig(w http.ResponseWriter, r *http.Request) {
	cluster, ok := clusterFromURL(w, r)
	if !ok {
		return
	}
	var req struct {
		Kubeconfig string `json:"kubeconfig"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	kubeconfig := strings.TrimSpace(req.Kubeconfig)
	if kubeconfig == "" {
		apiFail(w, "Kubeconfig is required")
		return
	}
	if err := kube.ValidateKubeconfig(kubeconfig); err != nil {
		apiFail(w, "Invalid kubeconfig format: "+err.Error())
		return
	}
	encrypted, err := crypto.Encrypt(kubeconfig)
	if err != nil {
		log.Printf("[clusters] encrypt kubeconfig: %v", err)
		apiFail(w, "Server error: could not store kubeconfig")
		return
	}
	cluster.Kubeconfig = encrypted
	if connErr := testAndRecordConnection(r.Context(), cluster, kubeconfig); connErr != "" {
		apiFail(w, "Failed to connect to cluster: "+connErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Kubeconfig updated",
	})
}

// ClusterStatus re-tests connectivity on demand.
// GET /api/v1/clusters/{clusterID}/status
func ClusterStatus(w http.ResponseWriter, r *http.Request) {
	cluster, ok := clusterFromURL(w, r)
	if !ok {
		return
	}
	kubeconfig, err := crypto.Decrypt(cluster.Kubeconfig)
	if err != nil {
		apiFail(w, "Cluster credentials unavailable")
		return
	}
	testAndRecordConnection(r.Context(), cluster, kubeconfig)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":               true,
		"connection_status":     cluster.ConnectionStatus,
		"connection_error":      cluster.ConnectionError,
		"last_connection_check": cluster.LastConnectionCheck,
	})
}
