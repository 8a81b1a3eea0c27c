package models

import "time"

type Room struct {
	ID        string `gorm:"primaryKey;size:36"`
	Slug      string `gorm:"uniqueIndex;size:64;not null"`
	Name      string `gorm:"size:128;not null"`
	CreatedAt time.Time
}

type Message struct {
	ID        string `gorm:"primaryKey;size:36"`
	RoomID    string `gorm:"index:idx_msg_room_id;size:36;not null"`
	UserName  string `gorm:"size:40;not null"`
	Text      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}
