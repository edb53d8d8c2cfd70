package values

type contextKey string

const (
	Success        = "success"
	Created        = "created"
	Error          = "error"
	Failed         = "failed"
	BadRequestBody = "bad_request"
	Unprocessable  = "unprocessable"
	NotAllowed     = "not_allowed"
	Conflict       = "conflict"
	NotFound       = "not_found"
	NotAuthorised  = "not_authorised"
	TokenExpired   = "token_expired"
	ActiveLogin    = "active_login"
	TooManyRequest = "too_many_requests"

	SystemErr = "Something went wrong, please try again"
)

const (
	HeaderRequestSource = "X-Request-Source"
	HeaderRequestID     = "X-Request-ID"
	HeaderAccessKey     = "X-Access-Key"
)

const (
	ContextTracingKey contextKey = "tracing"
	ContextUserIDKey  contextKey = "user_id"
	ContextUserRole   contextKey = "user_role"
)

// roles
const (
	RoleCitizen = "citizen"
	RoleOfficer = "officer"
)
