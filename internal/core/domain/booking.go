package domain

import "time"

type Patient struct {
	Name       string `json:"name"`
	SecondName string `json:"secondName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// BookingRequest запрос на запись в том виде, в котором он пришел от клиента.
// Start и End еще не провалидированы.
type BookingRequest struct {
	FacilityID string   `json:"facilityId"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Comments   string   `json:"comments"`
	Patient    *Patient `json:"patient"`
}

// Booking провалидированный запрос, который уходит во внешний сервис
type Booking struct {
	FacilityID string
	Start      time.Time
	End        time.Time
	Comments   string
	Patient    Patient
}

// BookingOutcome ответ внешнего сервиса на попытку записи.
// Accepted == false означает бизнес-отказ (например, слот уже занят).
type BookingOutcome struct {
	Accepted bool
	Message  string
}
