package models

// ValidationStatus is the outcome of the most recent credential probe
type ValidationStatus string

const (
	StatusUnknown ValidationStatus = "unknown"
	StatusValid   ValidationStatus = "valid"
	StatusInvalid ValidationStatus = "invalid"
)

// StatusFromProbe maps a probe result onto a status
func StatusFromProbe(ok bool) ValidationStatus {
	if ok {
		return StatusValid
	}
	return StatusInvalid
}
