package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xiebiao/shiptrack/pkg/errors"
	"github.com/xiebiao/shiptrack/pkg/response"
)

// parseID 解析路径参数中的ID,失败时直接写错误响应
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// bindError 参数绑定失败
func bindError(c *gin.Context, err error) {
	response.ErrorWithCode(c, apperrors.ErrCodeBindError, "invalid request: "+err.Error())
}
