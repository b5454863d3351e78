package coachsession

type StatusCode string

const (
	StatusPermissionDenied StatusCode = "permission_denied"
	StatusConnectionFailed StatusCode = "connection_failed"
	StatusDecodeError      StatusCode = "decode_error"
	StatusTransportError   StatusCode = "transport_error"
)

// Status is a user-visible condition. Statuses are surfaced as events, never
// thrown into caller code; fatal ones are followed by the closed state.
type Status struct {
	Code    StatusCode `json:"code"`
	Message string     `json:"message"`
}

// Events deliver session output to the attached client. All callbacks fire
// from session goroutines and must not block.
type Events struct {
	OnState  func(state State)
	OnLevel  func(level float64)
	OnStatus func(status Status)
}

func (e Events) emitState(s State) {
	if e.OnState != nil {
		e.OnState(s)
	}
}

func (e Events) emitLevel(l float64) {
	if e.OnLevel != nil {
		e.OnLevel(l)
	}
}

func (e Events) emitStatus(s Status) {
	if e.OnStatus != nil {
		e.OnStatus(s)
	}
}
