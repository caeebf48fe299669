package repository

import (
	"strings"
	"time"

	"github.com/linkledger/internal/models"

	"gorm.io/gorm"
)

// DeliveryRepository 回调投递日志数据访问接口
type DeliveryRepository interface {
	Create(delivery *models.WebhookDelivery) error
	List(filter DeliveryListFilter) ([]models.WebhookDelivery, int64, error)
	DeleteBefore(before time.Time) (int64, error)
}

// GormDeliveryRepository GORM 投递日志仓储
type GormDeliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository 创建投递日志仓储
func NewDeliveryRepository(db *gorm.DB) *GormDeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

// Create 写入投递日志
func (r *GormDeliveryRepository) Create(delivery *models.WebhookDelivery) error {
	return r.db.Create(delivery).Error
}

// List 查询投递日志
func (r *GormDeliveryRepository) List(filter DeliveryListFilter) ([]models.WebhookDelivery, int64, error) {
	query := r.db.Model(&models.WebhookDelivery{})
	if filter.MerchantID != 0 {
		query = query.Where("merchant_id = ?", filter.MerchantID)
	}
	if eventType := strings.TrimSpace(filter.EventType); eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.WebhookDelivery
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// DeleteBefore 清理指定时间之前的投递日志
func (r *GormDeliveryRepository) DeleteBefore(before time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", before).Delete(&models.WebhookDelivery{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
