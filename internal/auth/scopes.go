package auth

// OAuth scopes understood by the garden API. Write implies read.
const (
	ScopeGardenWrite = "garden:write"
	ScopeGardenRead  = "garden:read"
)
