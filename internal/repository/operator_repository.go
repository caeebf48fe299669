package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/linkledger/internal/models"

	"gorm.io/gorm"
)

// OperatorRepository 运营账号数据访问接口
type OperatorRepository interface {
	GetByUsername(username string) (*models.Operator, error)
	GetByID(id uint) (*models.Operator, error)
	List() ([]models.Operator, error)
	Create(operator *models.Operator) error
	TouchLastLogin(id uint, at time.Time) error
}

// GormOperatorRepository GORM 实现
type GormOperatorRepository struct {
	db *gorm.DB
}

// NewOperatorRepository 创建运营账号仓库
func NewOperatorRepository(db *gorm.DB) *GormOperatorRepository {
	return &GormOperatorRepository{db: db}
}

// GetByUsername 根据用户名获取运营账号
func (r *GormOperatorRepository) GetByUsername(username string) (*models.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	var operator models.Operator
	if err := r.db.Where("username = ?", username).First(&operator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}

// GetByID 根据 ID 获取运营账号
func (r *GormOperatorRepository) GetByID(id uint) (*models.Operator, error) {
	if id == 0 {
		return nil, nil
	}
	var operator models.Operator
	if err := r.db.First(&operator, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}

// List 获取全部运营账号
func (r *GormOperatorRepository) List() ([]models.Operator, error) {
	var operators []models.Operator
	if err := r.db.Order("id asc").Find(&operators).Error; err != nil {
		return nil, err
	}
	return operators, nil
}

// Create 创建运营账号
func (r *GormOperatorRepository) Create(operator *models.Operator) error {
	return r.db.Create(operator).Error
}

// TouchLastLogin 更新最后登录时间
func (r *GormOperatorRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Operator{}).Where("id = ?", id).Update("last_login_at", at).Error
}
