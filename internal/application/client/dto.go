package client

import (
	"time"

	"github.com/xiebiao/shiptrack/internal/domain/client"
)

// =========================================
// 应用层DTO
// =========================================

// ClientResponse 客户信息
type ClientResponse struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	ContactName      string    `json:"contact_name,omitempty"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Address          string    `json:"address,omitempty"`
	Prefix           string    `json:"prefix"`
	LastSequence     int64     `json:"last_sequence"`
	LastTrackingCode string    `json:"last_tracking_code,omitempty"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AllocationInfo 自动分配前缀的命中信息
type AllocationInfo struct {
	Phase     string `json:"phase"`     // base | numeric | alpha | fallback
	Exhausted bool   `json:"exhausted"` // 候选耗尽走了时间戳兜底,需要人工关注
}

// CreateClientResponse 创建客户响应
type CreateClientResponse struct {
	ClientResponse
	Allocation *AllocationInfo `json:"allocation,omitempty"` // 手工前缀时为空
}

func toClientResponse(c *client.Client) ClientResponse {
	resp := ClientResponse{
		ID:           c.ID,
		Name:         c.Name,
		ContactName:  c.ContactName,
		Email:        c.Email,
		Phone:        c.Phone,
		Address:      c.Address,
		Prefix:       c.Prefix,
		LastSequence: c.LastSequence,
		Active:       c.Active,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	// 改过前缀的客户,这里展示的是新前缀下的序号,历史追踪号保持原样
	if c.HasPrefix() && c.LastSequence > 0 {
		resp.LastTrackingCode = client.FormatTrackingCode(c.Prefix, c.LastSequence)
	}
	return resp
}

// Settings 客户用例的可调参数
type Settings struct {
	// PrefixRetryAttempts 自动分配前缀遇到唯一索引冲突时的最大尝试次数
	PrefixRetryAttempts int
}

func (s Settings) attempts() int {
	if s.PrefixRetryAttempts < 1 {
		return 1
	}
	return s.PrefixRetryAttempts
}
