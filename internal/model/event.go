package model

import "time"

// 活动状态
// annule / termine 在 schema 中保留，但没有任何流程写入
const (
	EventStatusDraft     = "brouillon"
	EventStatusPublished = "publie"
	EventStatusCancelled = "annule"
	EventStatusCompleted = "termine"
)

// 时间线分组
const (
	PlanningGroupArtistes   = "artistes"
	PlanningGroupTechniques = "techniques"
)

// 信息栏部门
const (
	InfoFieldSon     = "son"
	InfoFieldLumiere = "lumiere"
	InfoFieldPlateau = "plateau"
	InfoFieldGeneral = "general"
)

// InfoFieldTypes 信息栏部门的固定展示顺序
var InfoFieldTypes = []string{InfoFieldSon, InfoFieldLumiere, InfoFieldPlateau, InfoFieldGeneral}

// IsValidPlanningGroup 校验分组
func IsValidPlanningGroup(g string) bool {
	return g == PlanningGroupArtistes || g == PlanningGroupTechniques
}

// IsValidInfoFieldType 校验部门
func IsValidInfoFieldType(t string) bool {
	for _, v := range InfoFieldTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Event 活动表，对应 events
type Event struct {
	ID                  string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RegisseurID         string      `gorm:"type:uuid;not null"                             json:"regisseur_id"`
	NomEvenement        string      `gorm:"type:varchar(200);not null"                     json:"nom_evenement"`
	DateDebut           time.Time   `gorm:"not null"                                       json:"date_debut"`
	DateFin             time.Time   `gorm:"not null"                                       json:"date_fin"`
	Lieu                *string     `gorm:"type:varchar(255)"                              json:"lieu,omitempty"`
	StatutEvenement     string      `gorm:"type:varchar(20);not null;default:'brouillon'"  json:"statut_evenement"` // brouillon | publie
	SpecialitesRequises StringArray `gorm:"type:text[]"                                    json:"specialites_requises,omitempty"`
	Timestamps

	// 关联
	Regisseur *RegisseurProfile `gorm:"foreignKey:RegisseurID;references:ID" json:"regisseur,omitempty"`
}

// TableName 指定表名
func (Event) TableName() string { return "events" }

// PlanningItem 时间线条目表，对应 event_planning_items
// ordre 在每次保存时按列表位置重新计算（0..n-1）
type PlanningItem struct {
	ID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EventID   string    `gorm:"type:uuid;not null"                             json:"event_id"`
	Heure     string    `gorm:"type:varchar(10);not null"                      json:"heure"`
	Intitule  string    `gorm:"type:varchar(255);not null"                     json:"intitule"`
	Ordre     int       `gorm:"not null"                                       json:"ordre"`
	Groupe    string    `gorm:"type:varchar(20);not null"                      json:"groupe"` // artistes | techniques
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (PlanningItem) TableName() string { return "event_planning_items" }

// InformationField 部门信息栏表，对应 event_information_fields
type InformationField struct {
	ID           string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EventID      string  `gorm:"type:uuid;not null"                             json:"event_id"`
	TypeChamp    string  `gorm:"type:varchar(20);not null"                      json:"type_champ"` // son | lumiere | plateau | general
	ContenuTexte *string `gorm:"type:text"                                      json:"contenu_texte,omitempty"`
	Lien         *string `gorm:"column:chemin_fichier_supabase_storage;type:text" json:"chemin_fichier_supabase_storage,omitempty"`
	Timestamps
}

// TableName 指定表名
func (InformationField) TableName() string { return "event_information_fields" }
