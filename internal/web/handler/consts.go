package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// APIPath is the prefix of every JSON route. Requests below it pass auth.Authenticate.
	APIPath = "/api"

	// AuthPath is the path of the session and recovery routes, relative to APIPath.
	AuthPath = "/auth"

	// ErrNilDepsFatalLogMsg is used if router or deps are nil.
	ErrNilDepsFatalLogMsg = "router or deps is nil"
)
