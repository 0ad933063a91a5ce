package events

const (
	// TypeEmergencyPause is emitted when an instance is emergency paused.
	TypeEmergencyPause = "guard.pause"
	// TypeEmergencyResume is emitted when an instance resumes operation.
	TypeEmergencyResume = "guard.resume"
)

// EmergencyPause captures an emergency pause of a guarded instance.
type EmergencyPause struct {
	Module string
	Reason string
	Caller string
}

func (EmergencyPause) EventType() string { return TypeEmergencyPause }

func (e EmergencyPause) Attributes() map[string]string {
	return map[string]string{
		"module": e.Module,
		"reason": e.Reason,
		"caller": e.Caller,
	}
}

// EmergencyResume captures a guarded instance returning to service.
type EmergencyResume struct {
	Module string
	Caller string
}

func (EmergencyResume) EventType() string { return TypeEmergencyResume }

func (e EmergencyResume) Attributes() map[string]string {
	return map[string]string{
		"module": e.Module,
		"caller": e.Caller,
	}
}
