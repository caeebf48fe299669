package service

import (
	"fmt"

	"github.com/linkledger/internal/constants"
)

// transitionTable 状态机：当前状态 -> 允许的目标状态
type transitionTable map[string][]string

var conversionTransitions = transitionTable{
	constants.ConversionStatusPending:  {constants.ConversionStatusApproved, constants.ConversionStatusRejected},
	constants.ConversionStatusApproved: {constants.ConversionStatusRefunded},
}

var commissionTransitions = transitionTable{
	constants.CommissionStatusUnpaid: {constants.CommissionStatusPaid, constants.CommissionStatusRefunded},
}

var payoutTransitions = transitionTable{
	constants.PayoutStatusRequested:  {constants.PayoutStatusApproved, constants.PayoutStatusCancelled},
	constants.PayoutStatusApproved:   {constants.PayoutStatusProcessing},
	constants.PayoutStatusProcessing: {constants.PayoutStatusCompleted, constants.PayoutStatusFailed},
}

// allows 判断是否允许从 from 迁移到 to
func (t transitionTable) allows(from, to string) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// check 不允许时返回包裹 ErrInvalidTransition 的错误
func (t transitionTable) check(entity, from, to string) error {
	if t.allows(from, to) {
		return nil
	}
	return fmt.Errorf("%s %s -> %s: %w", entity, from, to, ErrInvalidTransition)
}
