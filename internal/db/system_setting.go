package db

import "gorm.io/gorm"

// SystemSetting stores operator-configurable key/value pairs.
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName keeps the legacy table name.
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeySiteName is the product name shown in API metadata.
	SettingKeySiteName = "site_name"
	// SettingKeyAIBaseURL is the chat-completions endpoint used for
	// check-in note summaries.
	SettingKeyAIBaseURL = "ai_base_url"
	// SettingKeyAIAPIKey authenticates against the summary endpoint.
	SettingKeyAIAPIKey = "ai_api_key"
	// SettingKeyAIModel selects the summary model.
	SettingKeyAIModel = "ai_model"
)
