package service

import (
	"fmt"
	"strings"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SystemSettings is the operator-editable configuration surface.
type SystemSettings struct {
	SiteName  string
	AIBaseURL string
	AIAPIKey  string
	AIModel   string
}

// SystemSettingService reads and writes system_settings rows.
type SystemSettingService struct {
	db *gorm.DB
}

// NewSystemSettingService constructs a SystemSettingService.
func NewSystemSettingService(gdb *gorm.DB) *SystemSettingService {
	return &SystemSettingService{db: gdb}
}

// GetSettings loads the full settings set; missing keys come back empty.
func (s *SystemSettingService) GetSettings() (SystemSettings, error) {
	var rows []db.SystemSetting
	if err := s.db.Find(&rows).Error; err != nil {
		return SystemSettings{}, fmt.Errorf("load settings: %w", err)
	}

	byKey := make(map[string]string, len(rows))
	for _, row := range rows {
		byKey[row.Key] = row.Value
	}

	return SystemSettings{
		SiteName:  byKey[db.SettingKeySiteName],
		AIBaseURL: byKey[db.SettingKeyAIBaseURL],
		AIAPIKey:  byKey[db.SettingKeyAIAPIKey],
		AIModel:   byKey[db.SettingKeyAIModel],
	}, nil
}

// UpdateSettings upserts every provided key.
func (s *SystemSettingService) UpdateSettings(settings SystemSettings) error {
	values := map[string]string{
		db.SettingKeySiteName:  strings.TrimSpace(settings.SiteName),
		db.SettingKeyAIBaseURL: strings.TrimSpace(settings.AIBaseURL),
		db.SettingKeyAIAPIKey:  strings.TrimSpace(settings.AIAPIKey),
		db.SettingKeyAIModel:   strings.TrimSpace(settings.AIModel),
	}

	for key, value := range values {
		row := db.SystemSetting{Key: key, Value: value}
		if err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}

	return nil
}
