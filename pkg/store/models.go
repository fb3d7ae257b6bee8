package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null"`
	Status       string
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type ConversationModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	Title     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

type MessageModel struct {
	ID             string    `gorm:"primaryKey"`
	ConversationID string    `gorm:"not null;index"`
	Role           string    `gorm:"not null"`
	Content        string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

type ProviderSettingsModel struct {
	ID            string `gorm:"primaryKey"`
	UpdatedBy     string
	ProviderName  string
	APIFormat     string `gorm:"not null"`
	APIEndpoint   string
	APIKey        string `gorm:"type:text"`
	AuthType      string
	ModelName     string
	Temperature   float64
	MaxTokens     int
	CustomHeaders datatypes.JSON `gorm:"type:jsonb"`
	ExtraParams   datatypes.JSON `gorm:"type:jsonb"`
	VisionEnabled bool
	UpdatedAt     time.Time
}

type PluginEnablementModel struct {
	UserID     string `gorm:"primaryKey"`
	PluginName string `gorm:"primaryKey"`
	Enabled    bool   `gorm:"not null"`
	UpdatedAt  time.Time
}

type PluginStateModel struct {
	UserID     string         `gorm:"primaryKey"`
	PluginName string         `gorm:"primaryKey"`
	State      datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt  time.Time
}

type AnalyticsEventModel struct {
	ID         string         `gorm:"primaryKey"`
	UserID     string         `gorm:"not null;index"`
	EventType  string         `gorm:"not null;index"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`
	RecordedAt time.Time      `gorm:"not null;index"`
}
