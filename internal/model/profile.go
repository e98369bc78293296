package model

// RegisseurProfile régisseur 档案表，对应 regisseur_profiles
type RegisseurProfile struct {
	ID             string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         string  `gorm:"type:uuid;not null;uniqueIndex"                 json:"user_id"`
	Nom            string  `gorm:"type:varchar(100);not null"                     json:"nom"`
	Prenom         string  `gorm:"type:varchar(100);not null"                     json:"prenom"`
	Email          string  `gorm:"type:varchar(255);not null"                     json:"email"`
	Telephone      *string `gorm:"type:varchar(30)"                               json:"telephone,omitempty"`
	Organisation   *string `gorm:"type:varchar(200)"                              json:"organisation,omitempty"`
	ProfilComplete bool    `gorm:"not null;default:false"                         json:"profil_complete"`
	Timestamps
}

// TableName 指定表名
func (RegisseurProfile) TableName() string { return "regisseur_profiles" }

// DisplayName 展示名
func (p *RegisseurProfile) DisplayName() string { return p.Prenom + " " + p.Nom }

// RefreshCompleteness 根据必填字段重新计算 profil_complete
func (p *RegisseurProfile) RefreshCompleteness() {
	p.ProfilComplete = p.Nom != "" && p.Prenom != "" && p.Telephone != nil && *p.Telephone != "" &&
		p.Organisation != nil && *p.Organisation != ""
}

// IntermittentProfile intermittent 档案表，对应 intermittent_profiles
type IntermittentProfile struct {
	ID             string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         string  `gorm:"type:uuid;not null;uniqueIndex"                 json:"user_id"`
	Nom            string  `gorm:"type:varchar(100);not null"                     json:"nom"`
	Prenom         string  `gorm:"type:varchar(100);not null"                     json:"prenom"`
	Email          string  `gorm:"type:varchar(255);not null"                     json:"email"`
	Telephone      *string `gorm:"type:varchar(30)"                               json:"telephone,omitempty"`
	Specialite     *string `gorm:"type:varchar(100)"                              json:"specialite,omitempty"`
	Bio            *string `gorm:"type:text"                                      json:"bio,omitempty"`
	ProfilComplete bool    `gorm:"not null;default:false"                         json:"profil_complete"`
	Timestamps
}

// TableName 指定表名
func (IntermittentProfile) TableName() string { return "intermittent_profiles" }

// DisplayName 展示名
func (p *IntermittentProfile) DisplayName() string { return p.Prenom + " " + p.Nom }

// RefreshCompleteness 根据必填字段重新计算 profil_complete
func (p *IntermittentProfile) RefreshCompleteness() {
	p.ProfilComplete = p.Nom != "" && p.Prenom != "" && p.Telephone != nil && *p.Telephone != "" &&
		p.Specialite != nil && *p.Specialite != ""
}
