package api

// Terminal reports whether the response status is final. Background
// responses are polled until they reach a terminal status.
func (s ResponseStatus) Terminal() bool {
	switch s {
	case ResponseStatusCompleted, ResponseStatusIncomplete, ResponseStatusFailed, ResponseStatusCancelled:
		return true
	}
	return false
}

// Cancellable reports whether a response in this status can still be
// cancelled via the cancel endpoint.
func (s ResponseStatus) Cancellable() bool {
	switch s {
	case ResponseStatusQueued, ResponseStatusInProgress:
		return true
	}
	return false
}
