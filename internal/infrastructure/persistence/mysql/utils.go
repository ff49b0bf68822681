package mysql

import (
	"errors"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// erDupEntry MySQL错误码:Duplicate entry 'xxx' for key 'yyy'
const erDupEntry = 1062

// isDuplicateError 判断是否为MySQL唯一索引冲突错误
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	// 开启TranslateError后GORM会翻译为ErrDuplicatedKey
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqldriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == erDupEntry
}

// nullablePrefix 空前缀存为NULL(唯一索引允许多个NULL)
func nullablePrefix(prefix string) *string {
	if prefix == "" {
		return nil
	}
	return &prefix
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
