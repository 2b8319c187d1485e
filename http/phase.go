package http

// callPhase is the state of a logical call.
type callPhase int

const (
	phaseIdle callPhase = iota
	phaseAuthenticating
	phaseSending
	phaseClassifying
	phaseRetrying
	phaseSucceeded
	phaseFailed
)

func (p callPhase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseAuthenticating:
		return "authenticating"
	case phaseSending:
		return "sending"
	case phaseClassifying:
		return "classifying"
	case phaseRetrying:
		return "retrying"
	case phaseSucceeded:
		return "succeeded"
	case phaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}
