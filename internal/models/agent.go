package models

// Agent is a registered directory entry: a reserved name and the process id
// of the agent currently running under it, if any.
type Agent struct {
	Name string `json:"name"`
	PID  *int   `json:"pid"`
}
