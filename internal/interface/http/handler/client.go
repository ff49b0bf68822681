package handler

import (
	"github.com/gin-gonic/gin"

	appclient "github.com/xiebiao/shiptrack/internal/application/client"
	"github.com/xiebiao/shiptrack/internal/interface/http/dto"
	"github.com/xiebiao/shiptrack/pkg/response"
)

// ClientHandler 客户HTTP处理器
type ClientHandler struct {
	createClientUseCase *appclient.CreateClientUseCase
	getClientUseCase    *appclient.GetClientUseCase
	updatePrefixUseCase *appclient.UpdatePrefixUseCase
	issueCodeUseCase    *appclient.IssueTrackingCodeUseCase
}

// NewClientHandler 创建客户处理器
func NewClientHandler(
	createClientUseCase *appclient.CreateClientUseCase,
	getClientUseCase *appclient.GetClientUseCase,
	updatePrefixUseCase *appclient.UpdatePrefixUseCase,
	issueCodeUseCase *appclient.IssueTrackingCodeUseCase,
) *ClientHandler {
	return &ClientHandler{
		createClientUseCase: createClientUseCase,
		getClientUseCase:    getClientUseCase,
		updatePrefixUseCase: updatePrefixUseCase,
		issueCodeUseCase:    issueCodeUseCase,
	}
}

// CreateClient 创建客户
// @Summary      创建客户
// @Description  prefix为空时按公司名称自动分配唯一前缀;手工前缀需满足2-10位大写字母数字且未被占用
// @Tags         客户
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateClientRequest true "客户信息"
// @Success      201 {object} response.Response{data=appclient.CreateClientResponse}
// @Failure      400 {object} response.Response "参数错误或前缀格式不合法"
// @Failure      409 {object} response.Response "前缀已被占用"
// @Failure      422 {object} response.Response "候选前缀耗尽"
// @Router       /api/v1/clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req dto.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.createClientUseCase.Execute(c.Request.Context(), appclient.CreateClientRequest{
		Name:        req.Name,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Prefix:      req.Prefix,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetClient 查询客户
// @Summary      查询客户
// @Description  返回客户当前前缀与最后签发的序号
// @Tags         客户
// @Produce      json
// @Param        id path int true "客户ID"
// @Success      200 {object} response.Response{data=appclient.ClientResponse}
// @Failure      404 {object} response.Response "客户不存在"
// @Router       /api/v1/clients/{id} [get]
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.getClientUseCase.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdatePrefix 修改客户前缀
// @Summary      修改客户前缀
// @Description  只影响之后签发的追踪号,已签发的追踪号保持不变
// @Tags         客户
// @Accept       json
// @Produce      json
// @Param        id path int true "客户ID"
// @Param        request body dto.UpdatePrefixRequest true "新前缀"
// @Success      200 {object} response.Response{data=appclient.ClientResponse}
// @Failure      400 {object} response.Response "前缀格式不合法"
// @Failure      404 {object} response.Response "客户不存在"
// @Failure      409 {object} response.Response "前缀已被占用"
// @Router       /api/v1/clients/{id}/prefix [put]
func (h *ClientHandler) UpdatePrefix(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdatePrefixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.updatePrefixUseCase.Execute(c.Request.Context(), id, req.Prefix)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// IssueTrackingCode 单独签发追踪号
// @Summary      签发追踪号
// @Description  不创建运单,直接占用客户的下一个序号(面单预打印)
// @Tags         客户
// @Produce      json
// @Param        id path int true "客户ID"
// @Success      201 {object} response.Response{data=appclient.TrackingCodeResponse}
// @Failure      404 {object} response.Response "客户不存在"
// @Failure      422 {object} response.Response "客户尚未分配前缀"
// @Router       /api/v1/clients/{id}/tracking-codes [post]
func (h *ClientHandler) IssueTrackingCode(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.issueCodeUseCase.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
