package service

import (
	"errors"

	"github.com/google/uuid"

	"github.com/helloindustry/tmb/internal/models"
	"gorm.io/gorm"
)

// Presence 提供某个房间当前在线连接数，由 ws gateway 实现。
type Presence interface {
	Online(slug string) int
}

// RoomService 封装房间相关的业务逻辑。
type RoomService struct {
	db       *gorm.DB
	presence Presence
}

func NewRoomService(db *gorm.DB, presence Presence) *RoomService {
	return &RoomService{db: db, presence: presence}
}

// RoomDTO 是对外输出的房间数据。
type RoomDTO struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Online int    `json:"online"`
}

// Create 创建新房间，slug 冲突时返回 ErrSlugTaken。
func (s *RoomService) Create(slug, name string) (*RoomDTO, error) {
	var count int64
	if err := s.db.Model(&models.Room{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugTaken
	}
	room := models.Room{ID: uuid.NewString(), Slug: slug, Name: name}
	if err := s.db.Create(&room).Error; err != nil {
		return nil, err
	}
	return &RoomDTO{ID: room.ID, Slug: room.Slug, Name: room.Name}, nil
}

// List 按名称排序返回全部房间，附带各房间的在线人数。
func (s *RoomService) List() ([]RoomDTO, error) {
	var rooms []models.Room
	if err := s.db.Order("name asc").Find(&rooms).Error; err != nil {
		return nil, err
	}
	out := make([]RoomDTO, 0, len(rooms))
	for _, r := range rooms {
		online := 0
		if s.presence != nil {
			online = s.presence.Online(r.Slug)
		}
		out = append(out, RoomDTO{ID: r.ID, Slug: r.Slug, Name: r.Name, Online: online})
	}
	return out, nil
}

// GetBySlug 按 slug 查询房间，不存在时返回 ErrRoomNotFound。
func (s *RoomService) GetBySlug(slug string) (*models.Room, error) {
	var room models.Room
	if err := s.db.Where("slug = ?", slug).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// Count 返回房间总数，仅用于首次启动时的种子判断。
func (s *RoomService) Count() (int64, error) {
	var count int64
	err := s.db.Model(&models.Room{}).Count(&count).Error
	return count, err
}
