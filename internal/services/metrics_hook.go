package services

// Recorder receives orchestration counters and gauges.
type Recorder interface {
	SessionOpened(kind string)
	AttemptFinished(kind string, ok bool)
	SubmissionFinished(kind string, ok bool)
}

// TransitionRecorder adapts a Recorder to Orchestrator.OnTransition.
func TransitionRecorder(r Recorder) func(Transition) {
	return func(t Transition) {
		kind := string(t.Kind)
		if t.To == StateRunning {
			r.SessionOpened(kind)
		}
		if t.From == StateRunning {
			r.AttemptFinished(kind, t.To == StateSucceeded)
		}
		if t.To.Terminal() {
			r.SubmissionFinished(kind, t.To == StateSucceeded)
		}
	}
}
