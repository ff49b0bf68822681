package client

import (
	"context"
)

// Repository 客户仓储接口(依赖倒置原则)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层实现
// 2. prefix列的唯一索引是唯一性的最终裁决者,CountByPrefix只是预检
type Repository interface {
	// Create 创建客户
	// 前缀已被占用或已被退役时返回ErrPrefixDuplicate
	Create(ctx context.Context, client *Client) error

	// FindByID 根据ID查找客户,不存在返回ErrClientNotFound
	FindByID(ctx context.Context, id uint) (*Client, error)

	// CountByPrefix 统计占用该前缀的数量
	// 其他客户的当前前缀和退役前缀都算占用,excludeID>0时排除该客户自身(编辑场景)
	CountByPrefix(ctx context.Context, prefix string, excludeID uint) (int64, error)

	// NextSequence 原子递增客户序号并返回(前缀,新序号)
	// 要求:读-改-写在同一行锁/单条UPDATE内完成,并发调用不得返回重复序号
	// 客户不存在返回ErrClientNotFound,未分配前缀返回ErrPrefixNotAssigned
	NextSequence(ctx context.Context, id uint) (prefix string, sequence int64, err error)

	// UpdatePrefix 修改客户前缀
	// 签发过追踪号的旧前缀转为退役前缀,之后只有该客户能再使用
	// 新前缀被占用或被其他客户退役返回ErrPrefixDuplicate,客户不存在返回ErrClientNotFound
	UpdatePrefix(ctx context.Context, id uint, prefix string) error

	// ListWithoutPrefix 按ID升序列出尚未分配前缀的客户(历史数据回填)
	ListWithoutPrefix(ctx context.Context, limit int) ([]*Client, error)
}
