package handler

import (
	"github.com/gin-gonic/gin"

	appclient "github.com/xiebiao/shiptrack/internal/application/client"
	"github.com/xiebiao/shiptrack/internal/interface/http/dto"
	"github.com/xiebiao/shiptrack/pkg/response"
)

// PrefixHandler 前缀预览与校验(客户表单实时提示)
type PrefixHandler struct {
	prefixQueryUseCase *appclient.PrefixQueryUseCase
}

// NewPrefixHandler 创建前缀处理器
func NewPrefixHandler(prefixQueryUseCase *appclient.PrefixQueryUseCase) *PrefixHandler {
	return &PrefixHandler{prefixQueryUseCase: prefixQueryUseCase}
}

// Suggest 预览自动分配的前缀
// @Summary      预览前缀
// @Description  不预留,结果在创建客户前可能被占用
// @Tags         前缀
// @Produce      json
// @Param        name query string true "公司名称"
// @Success      200 {object} response.Response{data=appclient.PrefixSuggestion}
// @Failure      400 {object} response.Response "参数错误"
// @Router       /api/v1/prefixes/suggest [get]
func (h *PrefixHandler) Suggest(c *gin.Context) {
	var q dto.SuggestPrefixQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.prefixQueryUseCase.Suggest(c.Request.Context(), q.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Check 校验手工前缀
// @Summary      校验前缀
// @Description  格式不合法或已被占用时valid/available为false并给出原因,HTTP状态仍为200
// @Tags         前缀
// @Produce      json
// @Param        prefix query string true "前缀"
// @Param        exclude_id query int false "排除的客户ID(编辑时传自身ID)"
// @Success      200 {object} response.Response{data=appclient.PrefixCheck}
// @Router       /api/v1/prefixes/check [get]
func (h *PrefixHandler) Check(c *gin.Context) {
	var q dto.CheckPrefixQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.prefixQueryUseCase.Check(c.Request.Context(), q.Prefix, q.ExcludeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
