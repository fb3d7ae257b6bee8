package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"havenai/pkg/domain"
)

const migrateLockID int64 = 61740258

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory
// lock so concurrent starts do not race on schema changes.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&ConversationModel{},
			&MessageModel{},
			&ProviderSettingsModel{},
			&PluginEnablementModel{},
			&PluginStateModel{},
			&AnalyticsEventModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "role", "status", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetProviderSettings returns the single global provider row, if any.
func (s *GormStore) GetProviderSettings() (domain.ProviderSettings, bool, error) {
	var model ProviderSettingsModel
	if err := s.db.Order("updated_at DESC").First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ProviderSettings{}, false, nil
		}
		return domain.ProviderSettings{}, false, err
	}
	rec, err := providerSettingsFromModel(model)
	if err != nil {
		return domain.ProviderSettings{}, false, err
	}
	return rec, true, nil
}

// SaveProviderSettings creates the global row on first save and mutates
// it in place afterwards. There is never more than one authoritative row.
func (s *GormStore) SaveProviderSettings(rec domain.ProviderSettings) error {
	existing, found, err := s.GetProviderSettings()
	if err != nil {
		return err
	}
	if found {
		rec.ID = existing.ID
	}
	model, err := providerSettingsToModel(rec)
	if err != nil {
		return err
	}
	model.UpdatedAt = time.Now().UTC()
	if found {
		return s.db.Model(&ProviderSettingsModel{}).Where("id = ?", model.ID).
			Select("*").Omit("id").Updates(model).Error
	}
	return s.db.Create(&model).Error
}

// CreateConversation inserts a new conversation.
func (s *GormStore) CreateConversation(conversation domain.Conversation) error {
	model := conversationToModel(conversation)
	return s.db.Create(&model).Error
}

// GetConversation returns one conversation by ID.
func (s *GormStore) GetConversation(id string) (domain.Conversation, bool, error) {
	var model ConversationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Conversation{}, false, nil
		}
		return domain.Conversation{}, false, err
	}
	return conversationFromModel(model), true, nil
}

// LatestConversationByUser returns the most recently updated conversation.
func (s *GormStore) LatestConversationByUser(userID string) (domain.Conversation, bool, error) {
	var model ConversationModel
	if err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Conversation{}, false, nil
		}
		return domain.Conversation{}, false, err
	}
	return conversationFromModel(model), true, nil
}

// ListConversationsByUser returns latest conversations of a user.
func (s *GormStore) ListConversationsByUser(userID string, limit int) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []ConversationModel
	if err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	items := make([]domain.Conversation, 0, len(models))
	for _, model := range models {
		items = append(items, conversationFromModel(model))
	}
	return items, nil
}

// RenameConversation updates the title.
func (s *GormStore) RenameConversation(id, title string) error {
	return s.db.Model(&ConversationModel{}).Where("id = ?", id).Updates(map[string]any{
		"title":      title,
		"updated_at": time.Now().UTC(),
	}).Error
}

// TouchConversation refreshes the update timestamp. Continuity decisions
// depend on this, so every append must call it.
func (s *GormStore) TouchConversation(id string, at time.Time) error {
	return s.db.Model(&ConversationModel{}).Where("id = ?", id).
		Update("updated_at", at.UTC()).Error
}

// DeleteConversations removes the user's conversations (and their
// messages) from the given ID list, returning the IDs actually deleted.
func (s *GormStore) DeleteConversations(userID string, ids []string) ([]string, error) {
	var owned []ConversationModel
	if err := s.db.Where("user_id = ? AND id IN ?", userID, ids).Find(&owned).Error; err != nil {
		return nil, err
	}
	deleted := make([]string, 0, len(owned))
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, conv := range owned {
			if err := tx.Where("conversation_id = ?", conv.ID).Delete(&MessageModel{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&ConversationModel{}, "id = ?", conv.ID).Error; err != nil {
				return err
			}
			deleted = append(deleted, conv.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// AppendMessage inserts one message.
func (s *GormStore) AppendMessage(msg domain.Message) error {
	model := messageToModel(msg)
	return s.db.Create(&model).Error
}

// ListMessages returns the last limit messages in chronological order.
func (s *GormStore) ListMessages(conversationID string, limit int) ([]domain.Message, error) {
	var models []MessageModel
	if limit > 0 {
		if err := s.db.Where("conversation_id = ?", conversationID).
			Order("created_at DESC").
			Limit(limit).
			Find(&models).Error; err != nil {
			return nil, err
		}
		msgs := make([]domain.Message, 0, len(models))
		for i := len(models) - 1; i >= 0; i-- {
			msgs = append(msgs, messageFromModel(models[i]))
		}
		return msgs, nil
	}
	if err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(models))
	for _, model := range models {
		msgs = append(msgs, messageFromModel(model))
	}
	return msgs, nil
}

// LatestMessage returns the newest message of a conversation.
func (s *GormStore) LatestMessage(conversationID string) (domain.Message, bool, error) {
	var model MessageModel
	if err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Message{}, false, nil
		}
		return domain.Message{}, false, err
	}
	return messageFromModel(model), true, nil
}

// SearchMessages does a case-insensitive substring search across the
// user's messages, newest first.
func (s *GormStore) SearchMessages(userID, query string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 40
	}
	term := "%" + query + "%"
	var models []MessageModel
	if err := s.db.
		Joins("JOIN conversation_models c ON c.id = message_models.conversation_id").
		Where("c.user_id = ? AND message_models.content ILIKE ?", userID, term).
		Order("message_models.created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(models))
	for _, model := range models {
		msgs = append(msgs, messageFromModel(model))
	}
	return msgs, nil
}

// GetPluginEnabled reports the stored toggle; exists=false means no row,
// which callers treat as enabled by default.
func (s *GormStore) GetPluginEnabled(userID, pluginName string) (bool, bool, error) {
	var model PluginEnablementModel
	if err := s.db.Where("user_id = ? AND plugin_name = ?", userID, pluginName).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, false, nil
		}
		return false, false, err
	}
	return model.Enabled, true, nil
}

// SetPluginEnabled upserts a per-user plugin toggle.
func (s *GormStore) SetPluginEnabled(userID, pluginName string, enabled bool) error {
	model := PluginEnablementModel{
		UserID:     userID,
		PluginName: pluginName,
		Enabled:    enabled,
		UpdatedAt:  time.Now().UTC(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "plugin_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
	}).Create(&model).Error
}

// GetPluginState returns the opaque state blob for one plugin.
func (s *GormStore) GetPluginState(userID, pluginName string) (map[string]any, bool, error) {
	var model PluginStateModel
	if err := s.db.Where("user_id = ? AND plugin_name = ?", userID, pluginName).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	state, err := jsonToMap(model.State)
	if err != nil {
		return nil, false, err
	}
	return state, true, nil
}

// SavePluginState upserts the opaque state blob for one plugin.
func (s *GormStore) SavePluginState(userID, pluginName string, state map[string]any) error {
	blob, err := mapToJSON(state)
	if err != nil {
		return err
	}
	model := PluginStateModel{
		UserID:     userID,
		PluginName: pluginName,
		State:      blob,
		UpdatedAt:  time.Now().UTC(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "plugin_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&model).Error
}

// AppendEvent inserts one analytics event. Events are never updated.
func (s *GormStore) AppendEvent(event domain.AnalyticsEvent) error {
	model, err := eventToModel(event)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// ListEventsByType returns the user's events of one type since a cutoff,
// in chronological order.
func (s *GormStore) ListEventsByType(userID, eventType string, since time.Time) ([]domain.AnalyticsEvent, error) {
	var models []AnalyticsEventModel
	if err := s.db.Where("user_id = ? AND event_type = ? AND recorded_at >= ?", userID, eventType, since.UTC()).
		Order("recorded_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	events := make([]domain.AnalyticsEvent, 0, len(models))
	for _, model := range models {
		event, err := eventFromModel(model)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// model conversions

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        strings.ToLower(strings.TrimSpace(u.Email)),
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Status:       string(u.Status),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		Status:       domain.UserStatus(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func conversationToModel(c domain.Conversation) ConversationModel {
	return ConversationModel{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func conversationFromModel(m ConversationModel) domain.Conversation {
	return domain.Conversation{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func messageToModel(msg domain.Message) MessageModel {
	return MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

func providerSettingsToModel(rec domain.ProviderSettings) (ProviderSettingsModel, error) {
	headers, err := mapToJSON(rec.CustomHeaders)
	if err != nil {
		return ProviderSettingsModel{}, err
	}
	params, err := mapToJSON(rec.ExtraParams)
	if err != nil {
		return ProviderSettingsModel{}, err
	}
	return ProviderSettingsModel{
		ID:            rec.ID,
		UpdatedBy:     rec.UpdatedBy,
		ProviderName:  rec.ProviderName,
		APIFormat:     rec.APIFormat,
		APIEndpoint:   rec.APIEndpoint,
		APIKey:        rec.APIKey,
		AuthType:      rec.AuthType,
		ModelName:     rec.ModelName,
		Temperature:   rec.Temperature,
		MaxTokens:     rec.MaxTokens,
		CustomHeaders: headers,
		ExtraParams:   params,
		VisionEnabled: rec.VisionEnabled,
		UpdatedAt:     rec.UpdatedAt,
	}, nil
}

func providerSettingsFromModel(m ProviderSettingsModel) (domain.ProviderSettings, error) {
	var headers map[string]string
	if len(m.CustomHeaders) > 0 {
		if err := json.Unmarshal(m.CustomHeaders, &headers); err != nil {
			return domain.ProviderSettings{}, fmt.Errorf("decode custom headers: %w", err)
		}
	}
	params, err := jsonToMap(m.ExtraParams)
	if err != nil {
		return domain.ProviderSettings{}, fmt.Errorf("decode extra params: %w", err)
	}
	return domain.ProviderSettings{
		ID:            m.ID,
		UpdatedBy:     m.UpdatedBy,
		ProviderName:  m.ProviderName,
		APIFormat:     m.APIFormat,
		APIEndpoint:   m.APIEndpoint,
		APIKey:        m.APIKey,
		AuthType:      m.AuthType,
		ModelName:     m.ModelName,
		Temperature:   m.Temperature,
		MaxTokens:     m.MaxTokens,
		CustomHeaders: headers,
		ExtraParams:   params,
		VisionEnabled: m.VisionEnabled,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func eventToModel(e domain.AnalyticsEvent) (AnalyticsEventModel, error) {
	payload, err := mapToJSON(e.Payload)
	if err != nil {
		return AnalyticsEventModel{}, err
	}
	return AnalyticsEventModel{
		ID:         e.ID,
		UserID:     e.UserID,
		EventType:  e.EventType,
		Payload:    payload,
		RecordedAt: e.RecordedAt,
	}, nil
}

func eventFromModel(m AnalyticsEventModel) (domain.AnalyticsEvent, error) {
	payload, err := jsonToMap(m.Payload)
	if err != nil {
		return domain.AnalyticsEvent{}, fmt.Errorf("decode event payload: %w", err)
	}
	return domain.AnalyticsEvent{
		ID:         m.ID,
		UserID:     m.UserID,
		EventType:  m.EventType,
		Payload:    payload,
		RecordedAt: m.RecordedAt,
	}, nil
}

func mapToJSON[V any](m map[string]V) (datatypes.JSON, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func jsonToMap(blob datatypes.JSON) (map[string]any, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(blob, &m); err != nil {
		return nil, err
	}
	return m, nil
}
