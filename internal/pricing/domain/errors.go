package domain

import "errors"

var (
	// ErrInvalidConfig 参数或引擎配置非法
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNumeric 矩阵分解或求解失败
	ErrNumeric = errors.New("numeric failure")
	// ErrOutOfRange 标的价格落在网格之外
	ErrOutOfRange = errors.New("spot outside grid")
	// ErrNotFound 无定价记录
	ErrNotFound = errors.New("pricing result not found")
)
