package order

import (
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
)

// 订单领域错误定义
var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = apperrors.New(apperrors.ErrCodeOrderNotFound, "订单不存在")

	// ErrInvalidStatusTransition 非法状态转换
	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidStatus, "订单状态不允许此操作")

	// ErrEmptyItems 订单没有商品
	ErrEmptyItems = apperrors.New(apperrors.ErrCodeInvalidParams, "订单必须包含至少一件商品")

	// ErrOrderNoDuplicate 订单号冲突
	ErrOrderNoDuplicate = apperrors.New(apperrors.ErrCodeDuplicateEntry, "订单号已存在")
)
