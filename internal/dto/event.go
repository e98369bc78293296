package dto

import "time"

// ── 活动模块 DTO ──

// PlanningItemInput 时间线条目输入
type PlanningItemInput struct {
	Heure    string `json:"heure"`
	Intitule string `json:"intitule"`
	Groupe   string `json:"groupe"`
}

// InformationFieldInput 部门信息栏输入
type InformationFieldInput struct {
	TypeChamp    string `json:"type_champ"    binding:"required"`
	ContenuTexte string `json:"contenu_texte"`
	Lien         string `json:"lien"          binding:"omitempty,max=1000"`
}

// CreateEventRequest 创建活动请求
type CreateEventRequest struct {
	NomEvenement        string                  `json:"nom_evenement"        binding:"required,max=200"`
	DateDebut           time.Time               `json:"date_debut"           binding:"required"`
	DateFin             time.Time               `json:"date_fin"             binding:"required"`
	Lieu                string                  `json:"lieu"                 binding:"omitempty,max=255"`
	SpecialitesRequises []string                `json:"specialites_requises"`
	Publish             bool                    `json:"publish"`
	Planning            []PlanningItemInput     `json:"planning"`
	Information         []InformationFieldInput `json:"information"`
	IntermittentIDs     []string                `json:"intermittent_ids"     binding:"omitempty,dive,uuid"`
}

// UpdateEventRequest 更新活动请求
// planning / information 为 nil 时保持原样；intermittent_ids 仅追加
type UpdateEventRequest struct {
	NomEvenement        string                   `json:"nom_evenement"        binding:"required,max=200"`
	DateDebut           time.Time                `json:"date_debut"           binding:"required"`
	DateFin             time.Time                `json:"date_fin"             binding:"required"`
	Lieu                string                   `json:"lieu"                 binding:"omitempty,max=255"`
	SpecialitesRequises []string                 `json:"specialites_requises"`
	Publish             bool                     `json:"publish"`
	Planning            *[]PlanningItemInput     `json:"planning"`
	Information         *[]InformationFieldInput `json:"information"`
	IntermittentIDs     []string                 `json:"intermittent_ids"     binding:"omitempty,dive,uuid"`
}

// EventListRequest 活动列表查询参数
type EventListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=brouillon publie annule termine"`
	From   string `form:"from"` // YYYY-MM-DD
	To     string `form:"to"`   // YYYY-MM-DD
}

// SavePlanningRequest 保存时间线请求
type SavePlanningRequest struct {
	Items []PlanningItemInput `json:"items"`
}

// SaveInformationRequest 保存信息栏请求
type SaveInformationRequest struct {
	Fields []InformationFieldInput `json:"fields"`
}

// FeuilleDeRouteRequest 导出参数
type FeuilleDeRouteRequest struct {
	Groupe string `form:"groupe" binding:"omitempty,oneof=tous artistes techniques"`
	Format string `form:"format" binding:"omitempty,oneof=pdf xlsx"`
}

// EventResponse 活动响应
type EventResponse struct {
	ID                  string   `json:"id"`
	RegisseurID         string   `json:"regisseur_id"`
	NomEvenement        string   `json:"nom_evenement"`
	DateDebut           string   `json:"date_debut"`
	DateFin             string   `json:"date_fin"`
	Lieu                string   `json:"lieu,omitempty"`
	StatutEvenement     string   `json:"statut_evenement"`
	SpecialitesRequises []string `json:"specialites_requises"`
	CreatedAt           string   `json:"created_at"`
	UpdatedAt           string   `json:"updated_at"`
}

// PlanningItemResponse 时间线条目响应
type PlanningItemResponse struct {
	ID       string `json:"id"`
	Heure    string `json:"heure"`
	Intitule string `json:"intitule"`
	Ordre    int    `json:"ordre"`
	Groupe   string `json:"groupe"`
}

// InformationFieldResponse 信息栏响应
type InformationFieldResponse struct {
	ID           string `json:"id"`
	TypeChamp    string `json:"type_champ"`
	ContenuTexte string `json:"contenu_texte,omitempty"`
	Lien         string `json:"lien,omitempty"`
}

// EventDetailResponse 活动详情（含子记录）
type EventDetailResponse struct {
	EventResponse
	Planning    []PlanningItemResponse     `json:"planning"`
	Information []InformationFieldResponse `json:"information"`
	Assignments []AssignmentResponse       `json:"assignments"`
}

// EventWriteResult 多步写入结果
type EventWriteResult struct {
	Event            EventResponse `json:"event"`
	PlanningCount    int           `json:"planning_count"`
	InformationCount int           `json:"information_count"`
	AssignmentsAdded int           `json:"assignments_added"`
}
