package domain

// Status is the structured result code returned to callers of the realtime
// managers. Caller-input problems and peer-reachability problems are values,
// not errors; only programming bugs panic.
type Status string

const (
	StatusOK                Status = "OK"
	StatusMissingData       Status = "MISSING_DATA"
	StatusWrongData         Status = "WRONG_DATA"
	StatusNotFound          Status = "NOT_FOUND"
	StatusConflict          Status = "CONFLICT"
	StatusUnallowed         Status = "UNALLOWED"
	StatusUnauthorized      Status = "UNAUTHORIZED"
	StatusClientDisconnect  Status = "CLIENT_DISCONNECT"
	StatusClientUnreachable Status = "CLIENT_UNREACHABLE"
	StatusServerError       Status = "SERVER_ERROR"
)

func (s Status) OK() bool { return s == StatusOK }
