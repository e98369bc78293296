package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"stage-planner/internal/model"
)

// RegisseurRepository régisseur 档案数据访问接口
type RegisseurRepository interface {
	Create(ctx context.Context, p *model.RegisseurProfile) error
	GetByID(ctx context.Context, id string) (*model.RegisseurProfile, error)
	GetByUserID(ctx context.Context, userID string) (*model.RegisseurProfile, error)
	Update(ctx context.Context, p *model.RegisseurProfile) error
}

type regisseurRepo struct {
	db *gorm.DB
}

// NewRegisseurRepo 创建 RegisseurRepository 实例
func NewRegisseurRepo(db *gorm.DB) RegisseurRepository {
	return &regisseurRepo{db: db}
}

func (r *regisseurRepo) Create(ctx context.Context, p *model.RegisseurProfile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *regisseurRepo) GetByID(ctx context.Context, id string) (*model.RegisseurProfile, error) {
	var p model.RegisseurProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *regisseurRepo) GetByUserID(ctx context.Context, userID string) (*model.RegisseurProfile, error) {
	var p model.RegisseurProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *regisseurRepo) Update(ctx context.Context, p *model.RegisseurProfile) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// IntermittentRepository intermittent 档案数据访问接口
type IntermittentRepository interface {
	Create(ctx context.Context, p *model.IntermittentProfile) error
	GetByID(ctx context.Context, id string) (*model.IntermittentProfile, error)
	GetByUserID(ctx context.Context, userID string) (*model.IntermittentProfile, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.IntermittentProfile, error)
	// Search 按姓名/专业模糊查询，excludeIDs 中的档案不返回
	Search(ctx context.Context, q string, excludeIDs []string) ([]model.IntermittentProfile, error)
	Update(ctx context.Context, p *model.IntermittentProfile) error
}

type intermittentRepo struct {
	db *gorm.DB
}

// NewIntermittentRepo 创建 IntermittentRepository 实例
func NewIntermittentRepo(db *gorm.DB) IntermittentRepository {
	return &intermittentRepo{db: db}
}

func (r *intermittentRepo) Create(ctx context.Context, p *model.IntermittentProfile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *intermittentRepo) GetByID(ctx context.Context, id string) (*model.IntermittentProfile, error) {
	var p model.IntermittentProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *intermittentRepo) GetByUserID(ctx context.Context, userID string) (*model.IntermittentProfile, error) {
	var p model.IntermittentProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *intermittentRepo) GetByIDs(ctx context.Context, ids []string) ([]model.IntermittentProfile, error) {
	var profiles []model.IntermittentProfile
	if len(ids) == 0 {
		return profiles, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("nom ASC, prenom ASC").
		Find(&profiles).Error
	return profiles, err
}

func (r *intermittentRepo) Search(ctx context.Context, q string, excludeIDs []string) ([]model.IntermittentProfile, error) {
	var profiles []model.IntermittentProfile
	db := r.db.WithContext(ctx).Model(&model.IntermittentProfile{})

	if q = strings.TrimSpace(q); q != "" {
		like := containsPattern(q)
		db = db.Where(`LOWER(nom) LIKE ? ESCAPE '\' OR LOWER(prenom) LIKE ? ESCAPE '\' OR LOWER(COALESCE(specialite, '')) LIKE ? ESCAPE '\'`, like, like, like)
	}
	if len(excludeIDs) > 0 {
		db = db.Where("id NOT IN ?", excludeIDs)
	}

	err := db.Order("nom ASC, prenom ASC").Find(&profiles).Error
	return profiles, err
}

func (r *intermittentRepo) Update(ctx context.Context, p *model.IntermittentProfile) error {
	return r.db.WithContext(ctx).Save(p).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern 小写子串匹配模式，用户输入中的通配符按字面量处理
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
}
