package storage

import "errors"

// Storage errors
var (
	// ErrSessionNotFound 会话未找到
	ErrSessionNotFound = errors.New("session not found")

	// ErrStorageClosed 存储已关闭
	ErrStorageClosed = errors.New("storage closed")

	// ErrInvalidData 数据损坏或无法解密
	ErrInvalidData = errors.New("invalid data")
)
