package shared

// Session value keys shared across modules.
const (
	// SessionKeyLastSeen records the last activity timestamp for a session.
	SessionKeyLastSeen = "last_seen"
	// SessionKeyLoginIP records the address the session was established from.
	SessionKeyLoginIP = "login_ip"
)
