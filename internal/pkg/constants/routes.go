package constants

// Static route constants
const (
	PublicRoute   = "/"
	PricingRoute  = "/pricing"
	DocsAPIRoute  = "/docs/api/v1"
	APIBasePath   = "/api/v1"
	WorkspacesURL = "/user/workspaces"
)
