package errors

import "errors"

// ErrCacheMiss 缓存未命中：调用方应回退到数据库查询
var ErrCacheMiss = errors.New("缓存未命中")
