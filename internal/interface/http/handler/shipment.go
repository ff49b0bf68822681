package handler

import (
	"github.com/gin-gonic/gin"

	appshipment "github.com/xiebiao/shiptrack/internal/application/shipment"
	"github.com/xiebiao/shiptrack/internal/interface/http/dto"
	"github.com/xiebiao/shiptrack/internal/interface/http/middleware"
	"github.com/xiebiao/shiptrack/pkg/response"
)

// ShipmentHandler 运单HTTP处理器
type ShipmentHandler struct {
	createShipmentUseCase *appshipment.CreateShipmentUseCase
	lookupShipmentUseCase *appshipment.LookupShipmentUseCase
}

// NewShipmentHandler 创建运单处理器
func NewShipmentHandler(
	createShipmentUseCase *appshipment.CreateShipmentUseCase,
	lookupShipmentUseCase *appshipment.LookupShipmentUseCase,
) *ShipmentHandler {
	return &ShipmentHandler{
		createShipmentUseCase: createShipmentUseCase,
		lookupShipmentUseCase: lookupShipmentUseCase,
	}
}

// CreateShipment 创建运单
// @Summary      创建运单
// @Description  在同一事务中签发追踪号并写入运单,客户不存在时不会创建运单
// @Tags         运单
// @Accept       json
// @Produce      json
// @Param        X-User-ID header int false "操作人ID"
// @Param        request body dto.CreateShipmentRequest true "运单信息"
// @Success      201 {object} response.Response{data=appshipment.ShipmentResponse}
// @Failure      400 {object} response.Response "参数错误"
// @Failure      404 {object} response.Response "客户不存在"
// @Failure      422 {object} response.Response "客户尚未分配前缀"
// @Router       /api/v1/shipments [post]
func (h *ShipmentHandler) CreateShipment(c *gin.Context) {
	var req dto.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.createShipmentUseCase.Execute(c.Request.Context(), appshipment.CreateShipmentRequest{
		ClientID:          req.ClientID,
		ClientReference:   req.ClientReference,
		Description:       req.Description,
		WeightKg:          req.WeightKg,
		Origin:            req.Origin,
		Destination:       req.Destination,
		EstimatedDelivery: req.EstimatedDelivery,
		CreatedBy:         middleware.GetUserID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Track 公开追踪查询
// @Summary      追踪查询
// @Description  按追踪号查询,查不到时按客户单号查询;返回状态历史(最新在前)
// @Tags         运单
// @Produce      json
// @Param        code path string true "追踪号或客户单号"
// @Success      200 {object} response.Response{data=appshipment.ShipmentResponse}
// @Failure      404 {object} response.Response "运单不存在"
// @Router       /api/v1/tracking/{code} [get]
func (h *ShipmentHandler) Track(c *gin.Context) {
	result, err := h.lookupShipmentUseCase.Execute(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
