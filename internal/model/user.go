package model

// 角色
const (
	RoleRegisseur    = "regisseur"
	RoleIntermittent = "intermittent"
	RoleAdmin        = "admin"
)

// User 账号表，对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex"          json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'intermittent'" json:"role"`
	Timestamps
}

// TableName 指定表名
func (User) TableName() string { return "users" }
