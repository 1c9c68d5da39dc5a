package logging

import "context"

type ctxFieldsKey struct{}

// ContextWith returns a copy of ctx carrying key-value pairs that every
// log call made with it includes, e.g. the RPC method being served.
func ContextWith(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	prev := fieldsFrom(ctx)
	fields := make([]any, 0, len(prev)+len(args))
	fields = append(fields, prev...)
	fields = append(fields, args...)
	return context.WithValue(ctx, ctxFieldsKey{}, fields)
}

func fieldsFrom(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(ctxFieldsKey{}).([]any)
	return fields
}

// withContextFields prepends the fields stored in ctx to args.
func withContextFields(ctx context.Context, args []any) []any {
	fields := fieldsFrom(ctx)
	if len(fields) == 0 {
		return args
	}
	out := make([]any, 0, len(fields)+len(args))
	out = append(out, fields...)
	return append(out, args...)
}
