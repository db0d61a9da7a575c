package repository

import (
	"context"

	"gorm.io/gorm"

	"launchgpt-go/internal/model"
)

// ChatRepository 定义了聊天记录的持久化操作。所有查询都以所有者为范围。
type ChatRepository interface {
	Create(ctx context.Context, record *model.ChatRecord) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]model.ChatRecord, error)
	FindByID(ctx context.Context, userID, chatID uint) (*model.ChatRecord, error)
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建一个新的 ChatRepository 实例。
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// Create 插入一条聊天记录，ID 与 CreatedAt 由数据库生成。
func (r *chatRepository) Create(ctx context.Context, record *model.ChatRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByUser 返回用户最近的 limit 条记录，按创建时间倒序。
func (r *chatRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.ChatRecord, error) {
	records := make([]model.ChatRecord, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FindByID 查找属于 userID 的记录；记录属于其他用户时与不存在一样返回 gorm.ErrRecordNotFound。
func (r *chatRepository) FindByID(ctx context.Context, userID, chatID uint) (*model.ChatRecord, error) {
	var record model.ChatRecord
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", chatID, userID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteByUser 删除用户的全部记录并返回删除条数。
func (r *chatRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.ChatRecord{})
	return res.RowsAffected, res.Error
}
