package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:      "127.0.0.1",
		Port:      3306,
		User:      "shopbot",
		Password:  "secret",
		DBName:    "shopbot",
		Charset:   "utf8mb4",
		ParseTime: true,
		Loc:       "Asia/Shanghai",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "shopbot:secret@tcp(127.0.0.1:3306)/shopbot")

	// loc必须URL编码,否则驱动解析DSN失败
	assert.Contains(t, dsn, "loc=Asia%2FShanghai")
	assert.NotContains(t, dsn, "Asia/Shanghai")

	// 必须按匹配行计数:把库存设成当前同值时,
	// RowsAffected仍为1,仓储层才不会误报商品不存在
	assert.Contains(t, dsn, "clientFoundRows=true")
}
