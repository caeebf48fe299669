package admin

import (
	"errors"
	"net/url"
	"strings"

	"github.com/linkledger/internal/authz"
	"github.com/linkledger/internal/http/response"
	"github.com/linkledger/internal/logger"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzSetOperatorRolesPayload struct {
	Roles []string `json:"roles"`
}

// GetAuthzMe 获取当前运营账号权限快照
func (h *Handler) GetAuthzMe(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}

	roles, err := h.AuthzService.GetOperatorRoles(operatorID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	policies, err := h.AuthzService.GetOperatorPolicies(operatorID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}

	isSuper := false
	if value, exists := c.Get("operator_is_super"); exists {
		if flag, typeOK := value.(bool); typeOK {
			isSuper = flag
		}
	}

	response.Success(c, gin.H{
		"operator_id": operatorID,
		"username":    currentUsername(c),
		"is_super":    isSuper,
		"roles":       roles,
		"policies":    policies,
	})
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, roles)
}

// ListAuthzOperators 获取运营账号及其角色
func (h *Handler) ListAuthzOperators(c *gin.Context) {
	operators, err := h.OperatorRepo.List()
	if err != nil {
		respondError(c, response.CodeServiceUnavailable, "error.storage_unavailable", err)
		return
	}

	items := make([]gin.H, 0, len(operators))
	for _, operator := range operators {
		roles, roleErr := h.AuthzService.GetOperatorRoles(operator.ID)
		if roleErr != nil {
			respondError(c, response.CodeInternal, "error.internal", roleErr)
			return
		}
		items = append(items, gin.H{
			"id":            operator.ID,
			"username":      operator.Username,
			"is_super":      operator.IsSuper,
			"last_login_at": operator.LastLoginAt,
			"created_at":    operator.CreatedAt,
			"roles":         roles,
		})
	}

	response.Success(c, items)
}

// CreateAuthzRole 创建角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondAuthzError(c, err)
		return
	}

	logger.Infow("admin_authz_role_created",
		"operator_id", currentOperatorID(c),
		"role", role,
	)
	response.Success(c, gin.H{"role": role})
}

// DeleteAuthzRole 删除角色
func (h *Handler) DeleteAuthzRole(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.role_invalid", nil)
		return
	}

	if err := h.AuthzService.DeleteRole(role); err != nil {
		respondAuthzError(c, err)
		return
	}

	logger.Infow("admin_authz_role_deleted",
		"operator_id", currentOperatorID(c),
		"role", role,
	)
	response.Success(c, nil)
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.role_invalid", nil)
		return
	}

	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondAuthzError(c, err)
		return
	}

	logger.Infow("admin_authz_policy_granted",
		"operator_id", currentOperatorID(c),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondAuthzError(c, err)
		return
	}

	logger.Infow("admin_authz_policy_revoked",
		"operator_id", currentOperatorID(c),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

// GetAuthzOperatorRoles 获取运营账号角色
func (h *Handler) GetAuthzOperatorRoles(c *gin.Context) {
	operatorID, ok := parseIDParam(c)
	if !ok {
		return
	}

	roles, err := h.AuthzService.GetOperatorRoles(operatorID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, roles)
}

// SetAuthzOperatorRoles 设置运营账号角色
func (h *Handler) SetAuthzOperatorRoles(c *gin.Context) {
	operatorID, ok := parseIDParam(c)
	if !ok {
		return
	}
	operator, err := h.OperatorRepo.GetByID(operatorID)
	if err != nil {
		respondError(c, response.CodeServiceUnavailable, "error.storage_unavailable", err)
		return
	}
	if operator == nil {
		respondError(c, response.CodeNotFound, "error.not_found", nil)
		return
	}

	var req authzSetOperatorRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.SetOperatorRoles(operatorID, req.Roles); err != nil {
		respondAuthzError(c, err)
		return
	}

	logger.Infow("admin_authz_operator_roles_updated",
		"operator_id", currentOperatorID(c),
		"target_operator_id", operatorID,
		"target_username", operator.Username,
		"roles", req.Roles,
	)
	response.Success(c, nil)
}

func decodeRoleParam(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}

func respondAuthzError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authz.ErrImmutableRole):
		respondError(c, response.CodeForbidden, "error.role_immutable", err)
	case errors.Is(err, authz.ErrRoleRequired), errors.Is(err, authz.ErrReservedRole):
		respondError(c, response.CodeBadRequest, "error.role_invalid", err)
	case errors.Is(err, authz.ErrInvalidAction), errors.Is(err, authz.ErrInvalidObject):
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
	default:
		respondError(c, response.CodeInternal, "error.internal", err)
	}
}
