package database

import (
	"fmt"
	"time"
)

// GetSessionBySID loads a terminal session by its public session id,
// with its cluster preloaded.
func GetSessionBySID(sessionID string) (*TerminalSession, error) {
	var s TerminalSession
	if err := DB.Preload("Cluster").First(&s, "session_id = ? AND is_active = ?", sessionID, true).Error; err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return &s, nil
}

// TouchSession updates a session's last-activity timestamp.
func TouchSession(id uint) error {
	return DB.Model(&TerminalSession{}).Where("id = ?", id).
		Update("last_activity", time.Now()).Error
}

// RecordCommand appends one command/output pair to a session's history,
// trimming the oldest rows beyond limit when limit > 0.
func RecordCommand(sessionID uint, command, output string, exitCode int, limit int) error {
	rec := CommandRecord{
		SessionID: sessionID,
		Command:   command,
		Output:    output,
		ExitCode:  exitCode,
	}
	if err := DB.Create(&rec).Error; err != nil {
		return fmt.Errorf("record command: %w", err)
	}

	if limit > 0 {
		var count int64
		DB.Model(&CommandRecord{}).Where("session_id = ?", sessionID).Count(&count)
		if count > int64(limit) {
			DB.Where("session_id = ? AND id NOT IN (?)",
				sessionID,
				DB.Model(&CommandRecord{}).Select("id").
					Where("session_id = ?", sessionID).
					Order("id DESC").Limit(limit),
			).Delete(&CommandRecord{})
		}
	}
	return nil
}

// SessionHistory returns a session's command records, oldest first.
func SessionHistory(sessionID uint) ([]CommandRecord, error) {
	var recs []CommandRecord
	if err := DB.Where("session_id = ?", sessionID).Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return recs, nil
}

// ClearSessionHistory deletes all command records for a session.
func ClearSessionHistory(sessionID uint) error {
	return DB.Where("session_id = ?", sessionID).Delete(&CommandRecord{}).Error
}

// ActiveClusters returns all clusters not soft-deleted, newest first,
// with their active sessions preloaded.
func ActiveClusters() ([]Cluster, error) {
	var clusters []Cluster
	err := DB.Preload("Sessions", "is_active = ?", true).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&clusters).Error
	if err != nil {
		return nil, fmt.Errorf("load clusters: %w", err)
	}
	return clusters, nil
}
