// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// User 对应于数据库中的 'users' 表。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(100);not null" json:"username"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}

// UserDTO 是返回给客户端的用户信息。
type UserDTO struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// DTO 去掉密码等敏感字段。
func (u *User) DTO() UserDTO {
	return UserDTO{ID: u.ID, Username: u.Username, Email: u.Email}
}
