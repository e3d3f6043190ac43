package service

import "context"

type contextKey string

const operatorKey contextKey = "operator"

// OperatorInfo defines the structured identity of a user
type OperatorInfo struct {
	UserID string
	Name   string
	Role   string
}

// WithOperator injects the operator info into the context
func WithOperator(ctx context.Context, op *OperatorInfo) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}

// GetOperatorInfo retrieves the operator info from the context
func GetOperatorInfo(ctx context.Context) *OperatorInfo {
	val, ok := ctx.Value(operatorKey).(*OperatorInfo)
	if !ok {
		return nil
	}
	return val
}

// GetOperator returns the username (backward compatibility)
func GetOperator(ctx context.Context) string {
	op := GetOperatorInfo(ctx)
	if op == nil {
		return "system"
	}
	return op.Name
}

// GetTraceID returns the trace id propagated by the HTTP layer, if any.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value("TraceID").(string)
	return id
}

// GetClientIP returns the caller address propagated by the HTTP layer, if any.
func GetClientIP(ctx context.Context) string {
	ip, _ := ctx.Value("ClientIP").(string)
	return ip
}
