package service

import (
	"github.com/linkledger/internal/models"

	"github.com/shopspring/decimal"
)

// payoutAllocation 一次提现完成时选中的佣金集合
type payoutAllocation struct {
	CommissionIDs []uint
	Allocated     decimal.Decimal
	Remainder     decimal.Decimal
}

// allocateGreedy 按入参顺序（创建时间升序）贪心选取佣金，单笔佣金不拆分；
// 放不下的佣金跳过，继续尝试后面更小的佣金
func allocateGreedy(commissions []models.Commission, target decimal.Decimal) payoutAllocation {
	result := payoutAllocation{Allocated: decimal.Zero, Remainder: target}
	for _, commission := range commissions {
		if !result.Remainder.IsPositive() {
			break
		}
		amount := commission.Amount.Decimal
		if amount.GreaterThan(result.Remainder) {
			continue
		}
		result.CommissionIDs = append(result.CommissionIDs, commission.ID)
		result.Allocated = result.Allocated.Add(amount)
		result.Remainder = result.Remainder.Sub(amount)
	}
	return result
}
