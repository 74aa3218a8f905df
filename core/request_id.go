package core

import "context"

type requestIDKey struct{}

// WithRequestID 把请求 ID 放入 Context，供日志与遥测关联
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom 读取请求 ID，不存在时返回空字符串
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
