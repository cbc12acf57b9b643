package ctxkeys

// ContextKey is used for storing request-scoped authentication and metadata in context
type ContextKey string

const (
	// Caller stores the authenticated, lower-cased wallet of the request
	Caller ContextKey = "caller"
)
