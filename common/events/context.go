package events

import "context"

type correlationKey struct{}

// WithCorrelationID 요청 단위 상관관계 ID 를 컨텍스트에 저장
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID 컨텍스트의 상관관계 ID (없으면 빈 문자열)
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
