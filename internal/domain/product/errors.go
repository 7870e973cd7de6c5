package product

import (
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
)

// 商品领域错误定义
var (
	// ErrProductNotFound 商品不存在
	ErrProductNotFound = apperrors.New(apperrors.ErrCodeProductNotFound, "商品不存在")

	// ErrInvalidQty 无效的库存数量
	ErrInvalidQty = apperrors.New(apperrors.ErrCodeInvalidParams, "库存不能为负数")

	// ErrSKUDuplicate 商品编码已存在
	ErrSKUDuplicate = apperrors.New(apperrors.ErrCodeDuplicateEntry, "商品编码已存在")
)
