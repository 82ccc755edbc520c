package main

import (
	"context"
	"log"
	"time"

	"github.com/kubeterm/kubeterm/internal/crypto"
	"github.com/kubeterm/kubeterm/internal/database"
	"github.com/kubeterm/kubeterm/internal/kube"
)

// connCheckProbeTimeout bounds each per-cluster probe so one dead
// cluster cannot eat the whole sweep.
const connCheckProbeTimeout = 15 * time.Second

// checkClusterConnections re-tests every active cluster and persists
// status transitions. Runs on the cron schedule from main.
func checkClusterConnections(ctx context.Context) {
	var clusters []database.Cluster
	if err := database.DB.Where("is_active = ?", true).Find(&clusters).Error; err != nil {
		log.Printf("[conncheck] list clusters: %v", err)
		return
	}

	for i := range clusters {
		cluster := &clusters[i]
		select {
		case <-ctx.Done():
			log.Printf("[conncheck] sweep cancelled after %d clusters", i)
			return
		default:
		}

		status, connErr := probeCluster(ctx, cluster)
		if status == cluster.ConnectionStatus && connErr == cluster.ConnectionError {
			// Still record the check time on unchanged status.
			now := time.Now()
			database.DB.Model(cluster).Update("last_connection_check", &now)
			continue
		}

		log.Printf("[conncheck] cluster %q: %s -> %s", cluster.Name, cluster.ConnectionStatus, status)
		now := time.Now()
		updates := map[string]interface{}{
			"connection_status":     status,
			"connection_error":      connErr,
			"last_connection_check": &now,
		}
		if err := database.DB.Model(cluster).Updates(updates).Error; err != nil {
			log.Printf("[conncheck] update cluster %d: %v", cluster.ID, err)
		}
	}
}

func probeCluster(ctx context.Context, cluster *database.Cluster) (status, connErr string) {
	kubeconfig, err := crypto.Decrypt(cluster.Kubeconfig)
	if err != nil {
		return database.ConnError, "cluster credentials unavailable"
	}

	probeCtx, cancel := context.WithTimeout(ctx, connCheckProbeTimeout)
	defer cancel()
	if msg, err := kube.TestConnection(probeCtx, kubeconfig); err != nil {
		return database.ConnDisconnected, msg
	}
	return database.ConnConnected, ""
}
