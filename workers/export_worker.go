// workers/export_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"java-quest-backend/models"
	"java-quest-backend/utils"

	"gorm.io/gorm"
)

// SnapshotExporter periodically uploads a ranked progress snapshot to R2,
// for offline analysis and as a cheap off-site backup of standings.
type SnapshotExporter struct {
	DB *gorm.DB
}

func NewSnapshotExporter(db *gorm.DB) *SnapshotExporter {
	return &SnapshotExporter{DB: db}
}

// Export writes one dated JSON snapshot: full ranking plus totals.
func (e *SnapshotExporter) Export(ctx context.Context) error {
	var rows []models.LeaderboardRow
	err := e.DB.WithContext(ctx).
		Model(&models.User{}).
		Select("id", "name", "xp", "level", "badges").
		Order("xp DESC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("load ranking for snapshot: %w", err)
	}

	var userCount int64
	if err := e.DB.WithContext(ctx).Model(&models.User{}).Count(&userCount).Error; err != nil {
		return fmt.Errorf("count users for snapshot: %w", err)
	}

	now := time.Now().UTC()
	snapshot := map[string]interface{}{
		"exported_at": now.Format(time.RFC3339),
		"user_count":  userCount,
		"ranking":     rows,
	}
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshots/progress-%s.json", now.Format("2006-01-02"))
	if err := utils.UploadJSONToR2(ctx, key, body); err != nil {
		return err
	}

	log.Printf("✅ Progress snapshot exported: %s (%d users)", key, userCount)
	return nil
}

// RunExportLoop exports once per interval until ctx is cancelled.
func RunExportLoop(ctx context.Context, exporter *SnapshotExporter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot exporter stopping...")
			return
		case <-ticker.C:
			exportCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			if err := exporter.Export(exportCtx); err != nil {
				log.Printf("⚠️  Snapshot export failed: %v", err)
			}
			cancel()
		}
	}
}
