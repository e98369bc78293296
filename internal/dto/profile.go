package dto

// ── 档案模块 DTO ──

// UpdateProfileRequest 更新本人档案（字段按角色生效）
type UpdateProfileRequest struct {
	Nom          *string `json:"nom"          binding:"omitempty,min=1,max=100"`
	Prenom       *string `json:"prenom"       binding:"omitempty,min=1,max=100"`
	Telephone    *string `json:"telephone"    binding:"omitempty,max=30"`
	Specialite   *string `json:"specialite"   binding:"omitempty,max=100"`  // intermittent
	Bio          *string `json:"bio"          binding:"omitempty,max=2000"` // intermittent
	Organisation *string `json:"organisation" binding:"omitempty,max=200"`  // régisseur
}

// IntermittentSearchRequest intermittent 目录查询
type IntermittentSearchRequest struct {
	Q string `form:"q" binding:"omitempty,max=100"`
}

// ProfileResponse 档案响应（两种角色共用）
type ProfileResponse struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Role           string `json:"role"`
	Nom            string `json:"nom"`
	Prenom         string `json:"prenom"`
	Email          string `json:"email"`
	Telephone      string `json:"telephone,omitempty"`
	Specialite     string `json:"specialite,omitempty"`
	Bio            string `json:"bio,omitempty"`
	Organisation   string `json:"organisation,omitempty"`
	ProfilComplete bool   `json:"profil_complete"`
	UpdatedAt      string `json:"updated_at"`
}

// IntermittentBrief intermittent 简要信息
type IntermittentBrief struct {
	ID         string `json:"id"`
	Nom        string `json:"nom"`
	Prenom     string `json:"prenom"`
	Email      string `json:"email,omitempty"`
	Specialite string `json:"specialite,omitempty"`
}
