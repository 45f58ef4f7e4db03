package session

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ynhind/open-library-client/internal/logger"
	"github.com/ynhind/open-library-client/internal/models"

	"github.com/glebarez/sqlite" // 纯 Go SQLite 驱动（基于 modernc.org/sqlite）
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

// clientState 本地状态键值对
type clientState struct {
	Key       string    `gorm:"primaryKey;type:varchar(64)"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"index"`
}

// TableName 指定表名
func (clientState) TableName() string {
	return "client_state"
}

// Store 会话凭证存储（token 与尽力解出的用户身份）
type Store struct {
	db *gorm.DB
}

// Open 打开本地状态库并迁移表结构
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("session state path is empty")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&clientState{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// SetCredentials 写入登录凭证；user 为空时尝试从 token 声明解出
func (s *Store) SetCredentials(token string, user *models.User) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}
	if user == nil {
		user = DecodeUser(token)
	}
	if err := s.set(keyToken, token); err != nil {
		return err
	}
	if user != nil {
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return s.set(keyUser, string(data))
	}
	return s.delete(keyUser)
}

// Token 读取当前 token，不存在时返回空串
func (s *Store) Token() string {
	value, ok := s.get(keyToken)
	if !ok {
		return ""
	}
	return value
}

// User 读取本地用户身份；存储损坏视为不存在并清除
func (s *Store) User() *models.User {
	value, ok := s.get(keyUser)
	if !ok {
		return nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(value), &user); err != nil {
		logger.Warnw("session_user_corrupted", "error", err)
		_ = s.delete(keyUser)
		return nil
	}
	return &user
}

// LoggedIn 是否持有 token
func (s *Store) LoggedIn() bool {
	return s.Token() != ""
}

// Clear 清除全部会话凭证
func (s *Store) Clear() error {
	if err := s.delete(keyToken); err != nil {
		return err
	}
	return s.delete(keyUser)
}

func (s *Store) set(key, value string) error {
	state := clientState{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.Save(&state).Error
}

func (s *Store) get(key string) (string, bool) {
	var state clientState
	err := s.db.Where("key = ?", key).First(&state).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warnw("session_state_read_failed", "key", key, "error", err)
		}
		return "", false
	}
	return state.Value, true
}

func (s *Store) delete(key string) error {
	return s.db.Where("key = ?", key).Delete(&clientState{}).Error
}
