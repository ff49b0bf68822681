package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// UserIDHeader 操作人ID请求头
// 鉴权由上游网关完成,这里只透传操作人用于审计字段
const UserIDHeader = "X-User-ID"

// GetUserID 读取操作人ID,缺失或非法时返回0(未知)
func GetUserID(c *gin.Context) uint {
	raw := c.GetHeader(UserIDHeader)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
