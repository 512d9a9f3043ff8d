package manager

import "context"

// Sources recorded in audit events.
const (
	SourceCLI       = "cli"
	SourceAPI       = "api"
	SourceMCP       = "mcp"
	SourceScheduler = "scheduler"
)

type sourceKey struct{}

// WithSource tags ctx with the surface a request came from. The value ends
// up in audit events.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	s, _ := ctx.Value(sourceKey{}).(string)
	return s
}
