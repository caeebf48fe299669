package authz

import (
	"fmt"

	"github.com/linkledger/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 预置角色矩阵，对象为 gin 路由模板
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role:      constants.RoleAuditor,
			Policies:  []Policy{{Object: "/admin/*", Action: "GET"}},
			Immutable: true,
		},
		{
			Role:     constants.RoleReviewer,
			Inherits: []string{constants.RoleAuditor},
			Policies: []Policy{
				{Object: "/admin/links", Action: "POST"},
				{Object: "/admin/links/:id/status", Action: "PATCH"},
				{Object: "/admin/conversions/:id/approve", Action: "POST"},
				{Object: "/admin/conversions/:id/reject", Action: "POST"},
				{Object: "/admin/conversions/:id/refund", Action: "POST"},
			},
			Immutable: true,
		},
		{
			Role:     constants.RoleFinance,
			Inherits: []string{constants.RoleAuditor},
			Policies: []Policy{
				{Object: "/admin/payouts", Action: "POST"},
				{Object: "/admin/payouts/:id/:action", Action: "POST"},
				{Object: "/admin/affiliates/:id/balance", Action: "GET"},
				{Object: "/admin/reconcile", Action: "POST"},
			},
			Immutable: true,
		},
		{
			Role:     constants.RoleIntegrations,
			Inherits: []string{constants.RoleAuditor},
			Policies: []Policy{
				{Object: "/admin/webhook-deliveries", Action: "GET"},
				{Object: "/admin/merchants/:id/webhook-test", Action: "POST"},
			},
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 把预置角色同步到策略表：补齐缺失的角色、继承与策略，
// 并移除预置角色上已不在矩阵中的旧策略。自定义角色不受影响。
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor); err != nil {
			return fmt.Errorf("create builtin role %s failed: %w", role, err)
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance %s -> %s failed: %w", role, parentRole, err)
			}
		}

		wanted := make(map[Policy]struct{}, len(seed.Policies))
		for _, policy := range seed.Policies {
			obj, act, err := validatePolicy(policy.Object, policy.Action)
			if err != nil {
				return fmt.Errorf("builtin policy %s %s: %w", policy.Action, policy.Object, err)
			}
			wanted[Policy{Subject: role, Object: obj, Action: act}] = struct{}{}
			if _, err := s.enforcer.AddPolicy(role, obj, act); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}

		if !seed.Immutable {
			continue
		}
		current, err := s.enforcer.GetFilteredPolicy(0, role)
		if err != nil {
			return fmt.Errorf("list builtin policies failed: %w", err)
		}
		for _, existing := range convertPolicies(current) {
			if _, ok := wanted[existing]; ok {
				continue
			}
			if _, err := s.enforcer.RemovePolicy(existing.Subject, existing.Object, existing.Action); err != nil {
				return fmt.Errorf("remove stale builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
