package client

import (
	"time"
)

// Client 客户实体(聚合根)
// 设计说明:
// 1. Prefix是客户的追踪号命名空间,全局唯一(数据库唯一索引保证)
// 2. Prefix为空表示尚未分配(对应数据库NULL)
// 3. LastSequence只能由Repository.NextSequence原子递增,应用层不得直接赋值
type Client struct {
	ID           uint
	Name         string // 公司名称(前缀推导的输入)
	ContactName  string // 联系人
	Email        string
	Phone        string
	Address      string
	Prefix       string // 追踪号前缀,如"ITP"
	LastSequence int64  // 最后一次签发的序号,初始为0
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewClient 创建新客户(工厂方法)
// prefix必须已经过格式校验与可用性检查
func NewClient(name, contactName, email, phone, address, prefix string) *Client {
	now := time.Now()
	return &Client{
		Name:        name,
		ContactName: contactName,
		Email:       email,
		Phone:       phone,
		Address:     address,
		Prefix:      prefix,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasPrefix 是否已分配前缀
func (c *Client) HasPrefix() bool {
	return c.Prefix != ""
}

// SamePrefix 判断候选前缀(规范化后)是否与当前前缀相同
// 编辑客户时相同则无需重新校验
func (c *Client) SamePrefix(candidate string) bool {
	return c.Prefix != "" && NormalizePrefix(candidate) == c.Prefix
}
