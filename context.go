package orgauth

import "context"

type clientIPContextKey struct{}
type orgIDContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Machine records it
// on audit events for rate-limit and rejection forensics.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithOrganizationID attaches an organization identifier to ctx. It is carried
// on audit events so multi-tenant log pipelines can partition by tenant.
func WithOrganizationID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgIDContextKey{}, orgID)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func orgIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	orgID, _ := ctx.Value(orgIDContextKey{}).(string)
	return orgID
}
