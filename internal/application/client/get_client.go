package client

import (
	"context"

	"github.com/xiebiao/shiptrack/internal/domain/client"
)

// GetClientUseCase 查询客户
type GetClientUseCase struct {
	clientRepo client.Repository
}

// NewGetClientUseCase 创建查询客户用例
func NewGetClientUseCase(clientRepo client.Repository) *GetClientUseCase {
	return &GetClientUseCase{clientRepo: clientRepo}
}

// Execute 根据ID查询客户,不存在返回ErrClientNotFound
func (uc *GetClientUseCase) Execute(ctx context.Context, id uint) (*ClientResponse, error) {
	c, err := uc.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toClientResponse(c)
	return &resp, nil
}
