package credential

import (
	"chatwidget/models"
)

// Indicator is the visual state of the settings panel
type Indicator struct {
	Status       models.ValidationStatus `json:"status"`
	Color        string                  `json:"color"`
	ApplyEnabled bool                    `json:"apply_enabled"`
}

// IndicatorFor maps a status onto the dot colour and apply button state
func IndicatorFor(status models.ValidationStatus) Indicator {
	switch status {
	case models.StatusValid:
		return Indicator{Status: status, Color: "green", ApplyEnabled: true}
	case models.StatusInvalid:
		return Indicator{Status: status, Color: "red"}
	}
	return Indicator{Status: models.StatusUnknown, Color: "transparent"}
}
