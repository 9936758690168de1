package domain

import "time"

type AvailableSlot struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	DayOfWeek   string    `json:"dayOfWeek"`
	IsAvailable bool      `json:"isAvailable"`
}

type WeeklyAvailability struct {
	FacilityID string          `json:"facilityId"`
	Slots      []AvailableSlot `json:"slots"`
}
