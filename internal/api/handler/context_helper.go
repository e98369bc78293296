package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stage-planner/internal/service"
	"stage-planner/pkg/response"
)

// 上下文键，由 middleware 写入
const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxTokenJTI = "token_jti"
	CtxTokenExp = "token_exp"
	CtxActor    = "actor"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(CtxUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "Non authentifié")
		return "", false
	}
	return s, true
}

// MustGetActor 提取 ProfileContext 中间件解析的身份上下文
func MustGetActor(c *gin.Context) (*service.Actor, bool) {
	v, exists := c.Get(CtxActor)
	if !exists {
		response.Unauthorized(c, 10002, "Non authentifié")
		return nil, false
	}
	actor, ok := v.(*service.Actor)
	if !ok || actor == nil {
		response.Unauthorized(c, 10002, "Non authentifié")
		return nil, false
	}
	return actor, true
}

// MustGetToken 提取当前 Access Token 的 jti 与过期时间
func MustGetToken(c *gin.Context) (string, time.Time, bool) {
	jti := c.GetString(CtxTokenJTI)
	exp, ok := c.Get(CtxTokenExp)
	expiresAt, isTime := exp.(time.Time)
	if jti == "" || !ok || !isTime {
		response.Unauthorized(c, 10002, "Non authentifié")
		return "", time.Time{}, false
	}
	return jti, expiresAt, true
}

// paramID 读取路径参数，为空时写入 400；非 UUID 的 ID 不可能存在，直接 404
func paramID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if id == "" {
		response.BadRequest(c, 10001, "Identifiant manquant")
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		response.NotFound(c, 10007, "Ressource introuvable")
		return "", false
	}
	return id, true
}
