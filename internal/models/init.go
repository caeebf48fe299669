package models

import (
	"strings"

	"github.com/linkledger/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const defaultOperatorPassword = "admin123"

// InitDefaultOperator 初始化默认运营账号，已有账号时不做任何修改
func InitDefaultOperator(username, password string) error {
	var count int64
	if err := DB.Model(&Operator{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = defaultOperatorPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	operator := Operator{
		Username:     username,
		PasswordHash: string(hash),
		IsSuper:      true,
	}
	if err := DB.Create(&operator).Error; err != nil {
		return err
	}

	if password == defaultOperatorPassword {
		logger.Warnw("default_operator_created_with_default_password", "username", username)
		logger.Warnw("default_operator_password_change_required", "username", username)
	} else {
		logger.Warnw("default_operator_created", "username", username, "password_hidden", true)
	}
	return nil
}
