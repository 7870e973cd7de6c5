package mysql

import (
	"errors"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL错误码1062: Duplicate entry 'xxx' for key 'yyy'
const errDuplicateEntry = 1062

// isDuplicateError 判断是否为唯一索引冲突
// 订单号、商品SKU都带唯一索引,冲突要映射成业务错误而不是500
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysqldriver.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}
