package reservation

import (
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
)

// 预留领域错误定义
var (
	// ErrProductNotFound 商品不存在(预留/扣减时货架里找不到)
	ErrProductNotFound = apperrors.New(apperrors.ErrCodeProductNotFound, "商品不存在")

	// ErrInsufficientStock 可售量不足(总库存减去在途预留后不够)
	ErrInsufficientStock = apperrors.New(apperrors.ErrCodeInsufficientStock, "库存不足")

	// ErrNegativeStock 扣减会导致总库存为负(预留与实际库存出现偏差)
	ErrNegativeStock = apperrors.New(apperrors.ErrCodeNegativeStock, "扣减后库存为负")

	// ErrInvalidQty 数量必须大于0
	ErrInvalidQty = apperrors.New(apperrors.ErrCodeInvalidParams, "数量必须大于0")
)
