package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest intermittent 自助注册请求
// 角色固定为 intermittent，régisseur 由 stagectl 创建
type RegisterRequest struct {
	Email      string  `json:"email"      binding:"required,email"`
	Password   string  `json:"password"   binding:"required,min=8,max=72"`
	Nom        string  `json:"nom"        binding:"required,max=100"`
	Prenom     string  `json:"prenom"     binding:"required,max=100"`
	Specialite *string `json:"specialite" binding:"omitempty,max=100"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}
