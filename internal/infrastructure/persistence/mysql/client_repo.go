package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/shiptrack/internal/domain/client"
	apperrors "github.com/xiebiao/shiptrack/pkg/errors"
)

// clientRepository 客户仓储实现(GORM版本)
type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository 创建客户仓储
func NewClientRepository(db *gorm.DB) client.Repository {
	return &clientRepository{db: db}
}

// Create 创建客户
// 带前缀时与退役前缀的检查在同一事务内完成
func (r *clientRepository) Create(ctx context.Context, c *client.Client) error {
	model := toClientModel(c)

	err := inTransaction(ctx, r.db, func(tx *gorm.DB) error {
		if c.Prefix != "" {
			n, err := countRetired(tx.Clauses(clause.Locking{Strength: "SHARE"}), c.Prefix, 0)
			if err != nil {
				return err
			}
			if n > 0 {
				return client.ErrPrefixDuplicate
			}
		}

		if err := tx.Create(model).Error; err != nil {
			// clients表只有prefix一个唯一索引
			if isDuplicateError(err) {
				return client.ErrPrefixDuplicate
			}
			return apperrors.Wrap(err, "创建客户失败")
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.ID = model.ID
	c.CreatedAt = model.CreatedAt
	c.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 根据ID查找客户
func (r *clientRepository) FindByID(ctx context.Context, id uint) (*client.Client, error) {
	var model ClientModel
	err := getDB(ctx, r.db).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, client.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "查询客户失败")
	}
	return toClientEntity(&model), nil
}

// CountByPrefix 统计占用该前缀的数量
// 其他客户的当前前缀和退役前缀都算占用:
//
//	SELECT count(*) FROM clients WHERE prefix = ? [AND id <> ?]
//	SELECT count(*) FROM client_prefixes WHERE prefix = ? [AND client_id <> ?]
func (r *clientRepository) CountByPrefix(ctx context.Context, prefix string, excludeID uint) (int64, error) {
	db := getDB(ctx, r.db)

	var count int64
	query := db.Model(&ClientModel{}).Where("prefix = ?", prefix)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(err, "查询前缀占用失败")
	}
	if count > 0 {
		return count, nil
	}

	return countRetired(db, prefix, excludeID)
}

// countRetired 统计其他客户退役的同名前缀
func countRetired(db *gorm.DB, prefix string, excludeClientID uint) (int64, error) {
	var count int64
	query := db.Model(&ClientPrefixModel{}).Where("prefix = ?", prefix)
	if excludeClientID > 0 {
		query = query.Where("client_id <> ?", excludeClientID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(err, "查询退役前缀失败")
	}
	return count, nil
}

// NextSequence 原子递增客户序号
// 流程(同一事务内):
//  1. SELECT ... FOR UPDATE 锁定客户行,其他签发请求在此排队
//  2. 检查前缀是否已分配
//  3. UPDATE clients SET last_sequence = last_sequence + 1 原地递增
//  4. 返回 锁定时的值+1
//
// ctx携带外部事务时加入该事务,外部回滚则递增一起回滚
func (r *clientRepository) NextSequence(ctx context.Context, id uint) (string, int64, error) {
	var (
		prefix string
		seq    int64
	)

	err := inTransaction(ctx, r.db, func(tx *gorm.DB) error {
		var model ClientModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "prefix", "last_sequence").
			First(&model, id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return client.ErrClientNotFound
			}
			return apperrors.Wrap(err, "锁定客户失败")
		}

		if derefString(model.Prefix) == "" {
			return client.ErrPrefixNotAssigned
		}

		result := tx.Model(&ClientModel{}).
			Where("id = ?", id).
			UpdateColumn("last_sequence", gorm.Expr("last_sequence + ?", 1))
		if result.Error != nil {
			return apperrors.Wrap(result.Error, "递增序号失败")
		}
		if result.RowsAffected == 0 {
			return client.ErrClientNotFound
		}

		prefix = *model.Prefix
		seq = model.LastSequence + 1
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	return prefix, seq, nil
}

// UpdatePrefix 修改客户前缀
// 流程(同一事务内):
//  1. SELECT ... FOR UPDATE 锁定客户行,与NextSequence互斥
//  2. 新前缀被其他客户退役过则冲突
//  3. 更新prefix,不改写last_sequence
//  4. 旧前缀签发过追踪号(last_sequence>0)时写入client_prefixes
func (r *clientRepository) UpdatePrefix(ctx context.Context, id uint, prefix string) error {
	return inTransaction(ctx, r.db, func(tx *gorm.DB) error {
		var model ClientModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "prefix", "last_sequence").
			First(&model, id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return client.ErrClientNotFound
			}
			return apperrors.Wrap(err, "锁定客户失败")
		}

		if prefix != "" {
			n, err := countRetired(tx.Clauses(clause.Locking{Strength: "SHARE"}), prefix, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return client.ErrPrefixDuplicate
			}
		}

		now := time.Now()
		result := tx.Model(&ClientModel{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"prefix":     nullablePrefix(prefix),
				"updated_at": now,
			})
		if result.Error != nil {
			if isDuplicateError(result.Error) {
				return client.ErrPrefixDuplicate
			}
			return apperrors.Wrap(result.Error, "更新客户前缀失败")
		}

		old := derefString(model.Prefix)
		if old == "" || old == prefix || model.LastSequence == 0 {
			return nil
		}

		// 同一客户再次放弃该前缀时刷新退役序号
		retired := &ClientPrefixModel{
			Prefix:       old,
			ClientID:     id,
			LastSequence: model.LastSequence,
			RetiredAt:    now,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "prefix"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_sequence", "retired_at"}),
		}).Create(retired).Error
		if err != nil {
			return apperrors.Wrap(err, "记录退役前缀失败")
		}
		return nil
	})
}

// ListWithoutPrefix 按ID升序列出未分配前缀的客户
func (r *clientRepository) ListWithoutPrefix(ctx context.Context, limit int) ([]*client.Client, error) {
	var models []ClientModel
	query := getDB(ctx, r.db).Where("prefix IS NULL").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询未分配前缀的客户失败")
	}

	clients := make([]*client.Client, len(models))
	for i := range models {
		clients[i] = toClientEntity(&models[i])
	}
	return clients, nil
}

// toClientModel 领域实体 → GORM模型
func toClientModel(c *client.Client) *ClientModel {
	return &ClientModel{
		ID:           c.ID,
		Name:         c.Name,
		ContactName:  c.ContactName,
		Email:        c.Email,
		Phone:        c.Phone,
		Address:      c.Address,
		Prefix:       nullablePrefix(c.Prefix),
		LastSequence: c.LastSequence,
		Active:       c.Active,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// toClientEntity GORM模型 → 领域实体
func toClientEntity(m *ClientModel) *client.Client {
	return &client.Client{
		ID:           m.ID,
		Name:         m.Name,
		ContactName:  m.ContactName,
		Email:        m.Email,
		Phone:        m.Phone,
		Address:      m.Address,
		Prefix:       derefString(m.Prefix),
		LastSequence: m.LastSequence,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
