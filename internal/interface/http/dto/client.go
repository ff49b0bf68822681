package dto

// CreateClientRequest HTTP创建客户请求
// prefix留空时按公司名称自动分配,格式由领域校验给出具体原因
type CreateClientRequest struct {
	Name        string `json:"name" binding:"required,max=200" example:"IT Piezas"`
	ContactName string `json:"contact_name" binding:"max=100" example:"Ana López"`
	Email       string `json:"email" binding:"omitempty,email,max=100" example:"ops@itpiezas.mx"`
	Phone       string `json:"phone" binding:"max=30" example:"+52 81 5555 0000"`
	Address     string `json:"address" binding:"max=500" example:"Av. Constitución 100, Monterrey"`
	Prefix      string `json:"prefix" example:"ITP"`
}

// UpdatePrefixRequest HTTP修改前缀请求
type UpdatePrefixRequest struct {
	Prefix string `json:"prefix" example:"ITPZ"`
}

// SuggestPrefixQuery 前缀预览查询参数
type SuggestPrefixQuery struct {
	Name string `form:"name" binding:"required,max=200" example:"IT Piezas"`
}

// CheckPrefixQuery 前缀校验查询参数
// exclude_id用于编辑客户时排除自身
type CheckPrefixQuery struct {
	Prefix    string `form:"prefix" example:"ITP"`
	ExcludeID uint   `form:"exclude_id" binding:"omitempty,min=1" example:"7"`
}
