package courier

import (
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
)

// 配送员领域错误定义
var (
	// ErrCourierNotFound 配送员不存在
	ErrCourierNotFound = apperrors.New(apperrors.ErrCodeCourierNotFound, "配送员不存在")
)
