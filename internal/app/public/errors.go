package public

import "errors"

var ErrAgentNotFound = errors.New("agent_not_found")
