package vehicle

import (
	"time"
)

// Vehicle 是 vehicles 表的 GORM 模型。
// Available 不是实时推导值，由租约事务在创建/删除时翻转。
type Vehicle struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Brand     string    `gorm:"size:64;not null" json:"brand"`
	Model     string    `gorm:"size:64;not null" json:"model"`
	Year      int       `gorm:"not null" json:"year"`
	Color     string    `gorm:"size:32" json:"color"`
	DailyRate float64   `gorm:"type:decimal(10,2);not null" json:"dailyRate"` // 每日租金
	Available bool      `gorm:"not null;default:true" json:"available"`
	ImageURL  string    `gorm:"size:255" json:"imageUrl,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}
