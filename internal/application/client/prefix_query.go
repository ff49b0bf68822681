package client

import (
	"context"
	"strings"

	"github.com/xiebiao/shiptrack/internal/domain/client"
	apperrors "github.com/xiebiao/shiptrack/pkg/errors"
)

// PrefixQueryUseCase 客户表单用的前缀预览与校验
// 只读,不预留前缀:预览结果在真正创建前可能被别人占用
type PrefixQueryUseCase struct {
	allocator client.Allocator
}

// NewPrefixQueryUseCase 创建前缀查询用例
func NewPrefixQueryUseCase(allocator client.Allocator) *PrefixQueryUseCase {
	return &PrefixQueryUseCase{allocator: allocator}
}

// PrefixSuggestion 自动分配预览
type PrefixSuggestion struct {
	Name       string `json:"name"`
	BasePrefix string `json:"base_prefix"`
	Prefix     string `json:"prefix"`
	Phase      string `json:"phase"`
	Exhausted  bool   `json:"exhausted"`
}

// PrefixCheck 手工前缀校验结果
// Valid=false时Error是格式错误;Valid=true且Available=false时Error是"prefix already in use"
type PrefixCheck struct {
	Prefix    string `json:"prefix"`
	Valid     bool   `json:"valid"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Suggest 预览公司名称会分配到的前缀
func (uc *PrefixQueryUseCase) Suggest(ctx context.Context, name string) (*PrefixSuggestion, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ErrInvalidParams.WithMessage("name is required")
	}

	alloc, err := uc.allocator.AllocatePrefix(ctx, name)
	if err != nil {
		return nil, err
	}

	return &PrefixSuggestion{
		Name:       name,
		BasePrefix: client.DeriveBasePrefix(name),
		Prefix:     alloc.Prefix,
		Phase:      string(alloc.Phase),
		Exhausted:  alloc.Exhausted(),
	}, nil
}

// Check 校验手工前缀格式与可用性
// excludeID>0时排除该客户自身(编辑表单)
func (uc *PrefixQueryUseCase) Check(ctx context.Context, prefix string, excludeID uint) (*PrefixCheck, error) {
	v := client.ValidatePrefixFormat(prefix)
	if !v.Valid {
		return &PrefixCheck{Prefix: v.Prefix, Error: v.Error}, nil
	}

	ok, err := uc.allocator.IsPrefixAvailableFor(ctx, v.Prefix, excludeID)
	if err != nil {
		return nil, err
	}

	result := &PrefixCheck{Prefix: v.Prefix, Valid: true, Available: ok}
	if !ok {
		result.Error = client.ErrPrefixUnavailable.Message
	}
	return result, nil
}
