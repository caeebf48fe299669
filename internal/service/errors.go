package service

import (
	"errors"
	"fmt"

	"github.com/linkledger/internal/repository"
)

// 错误分类，调用方以 errors.Is 判断类别
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidPayload      = errors.New("invalid payload")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

// 具体错误，均包裹一个分类错误
var (
	ErrLinkNotFound        = fmt.Errorf("link %w", ErrNotFound)
	ErrConversionNotFound  = fmt.Errorf("conversion %w", ErrNotFound)
	ErrPayoutNotFound      = fmt.Errorf("payout %w", ErrNotFound)
	ErrMerchantNotFound    = fmt.Errorf("merchant %w", ErrNotFound)
	ErrInvalidSignature    = fmt.Errorf("webhook signature mismatch: %w", ErrUnauthorized)
	ErrMerchantKeyInvalid  = fmt.Errorf("merchant api key rejected: %w", ErrUnauthorized)
	ErrInvalidCredentials  = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	ErrCommissionExists    = fmt.Errorf("commission %w", ErrAlreadyExists)
	ErrSlugTaken           = fmt.Errorf("slug %w", ErrAlreadyExists)
	ErrPayoutAmountInvalid = fmt.Errorf("payout amount must be positive: %w", ErrInvalidPayload)
	ErrLinkMerchantInvalid = fmt.Errorf("link does not belong to merchant: %w", ErrInvalidPayload)
)

// payloadError 附带字段说明的载荷错误
func payloadError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidPayload)
}

// storageError 将底层存储错误归类为 ErrStorageUnavailable，已分类的错误原样返回
func storageError(err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}
	if repository.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func isClassified(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrInvalidPayload,
		ErrUnauthorized,
		ErrAlreadyExists,
		ErrInvalidTransition,
		ErrInsufficientBalance,
		ErrStorageUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
