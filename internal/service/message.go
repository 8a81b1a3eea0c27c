package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/helloindustry/tmb/internal/models"
	"gorm.io/gorm"
)

// MaxMessageLen 与 MaxNameLen 是消息正文和昵称的存储上限。
const (
	MaxMessageLen = 4000
	MaxNameLen    = 40

	DefaultHistoryLimit = 200
)

// MessageService 封装消息相关的业务逻辑。
type MessageService struct {
	db *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// MessageDTO 是对外输出的消息数据。
type MessageDTO struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	UserName  string    `json:"userName"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Create 持久化一条消息并分配 id 与时间戳。超限字段在此兜底截断。
func (s *MessageService) Create(roomID, userName, text string) (*MessageDTO, error) {
	msg := models.Message{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		UserName: Truncate(userName, MaxNameLen),
		Text:     Truncate(text, MaxMessageLen),
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &MessageDTO{
		Type:      "message",
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserName:  msg.UserName,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}, nil
}

// ListByRoom 返回指定房间最近 limit 条消息，按时间升序。
func (s *MessageService) ListByRoom(roomID string, limit int) ([]MessageDTO, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}

	var msgs []models.Message
	if err := s.db.Where("room_id = ?", roomID).Order("created_at desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}

	// 反转为升序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageDTO{
			Type:      "message",
			ID:        m.ID,
			RoomID:    m.RoomID,
			UserName:  m.UserName,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// Delete 删除消息，id 不存在时为幂等 no-op。
func (s *MessageService) Delete(id string) error {
	return s.db.Delete(&models.Message{}, "id = ?", id).Error
}

// Truncate 按 rune 截断字符串到 n 个字符。
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
