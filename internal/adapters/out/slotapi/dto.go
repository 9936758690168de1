package slotapi

import (
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/json_types"
)

// Ключи ответа сервиса слотов приходят в разном регистре,
// encoding/json сопоставляет их без учета регистра.

type facilityDTO struct {
	FacilityID string `json:"facilityId"`
	Name       string `json:"name"`
	Address    string `json:"address"`
}

type workPeriodDTO struct {
	StartHour      int `json:"startHour"`
	LunchStartHour int `json:"lunchStartHour"`
	LunchEndHour   int `json:"lunchEndHour"`
	EndHour        int `json:"endHour"`
}

type busySlotDTO struct {
	Start json_types.DateTime `json:"start"`
	End   json_types.DateTime `json:"end"`
}

type dayAvailabilityDTO struct {
	WorkPeriod *workPeriodDTO `json:"workPeriod"`
	BusySlots  []busySlotDTO  `json:"busySlots"`
}

type weeklyAvailabilityDTO struct {
	Facility            *facilityDTO        `json:"facility"`
	SlotDurationMinutes int                 `json:"slotDurationMinutes"`
	Monday              *dayAvailabilityDTO `json:"monday"`
	Tuesday             *dayAvailabilityDTO `json:"tuesday"`
	Wednesday           *dayAvailabilityDTO `json:"wednesday"`
	Thursday            *dayAvailabilityDTO `json:"thursday"`
	Friday              *dayAvailabilityDTO `json:"friday"`
	Saturday            *dayAvailabilityDTO `json:"saturday"`
	Sunday              *dayAvailabilityDTO `json:"sunday"`
}

func (d weeklyAvailabilityDTO) toDomain() *domain.WeeklySchedule {
	schedule := &domain.WeeklySchedule{
		SlotDurationMinutes: d.SlotDurationMinutes,
	}
	if d.Facility != nil {
		schedule.Facility = domain.Facility{
			FacilityID: d.Facility.FacilityID,
			Name:       d.Facility.Name,
			Address:    d.Facility.Address,
		}
	}

	days := [7]*dayAvailabilityDTO{d.Monday, d.Tuesday, d.Wednesday, d.Thursday, d.Friday, d.Saturday, d.Sunday}
	for i, day := range days {
		schedule.Days[i] = day.toDomain()
	}

	return schedule
}

func (d *dayAvailabilityDTO) toDomain() domain.DaySchedule {
	if d == nil {
		return domain.DaySchedule{}
	}

	day := domain.DaySchedule{
		BusySlots: make([]domain.BusyInterval, 0, len(d.BusySlots)),
	}
	if d.WorkPeriod != nil {
		day.WorkPeriod = &domain.WorkPeriod{
			StartHour:      d.WorkPeriod.StartHour,
			LunchStartHour: d.WorkPeriod.LunchStartHour,
			LunchEndHour:   d.WorkPeriod.LunchEndHour,
			EndHour:        d.WorkPeriod.EndHour,
		}
	}
	for _, busy := range d.BusySlots {
		// Интервал без границ ничего не блокирует
		if busy.Start.Date.IsZero() || busy.End.Date.IsZero() {
			continue
		}
		day.BusySlots = append(day.BusySlots, domain.BusyInterval{
			Start: busy.Start.Date,
			End:   busy.End.Date,
		})
	}

	return day
}

// Тело TakeSlot в формате, который ожидает сервис слотов
type patientDTO struct {
	Name       string `json:"Name"`
	SecondName string `json:"SecondName"`
	Email      string `json:"Email"`
	Phone      string `json:"Phone"`
}

type takeSlotRequestDTO struct {
	FacilityID string     `json:"FacilityId"`
	Start      string     `json:"Start"`
	End        string     `json:"End"`
	Comments   string     `json:"Comments"`
	Patient    patientDTO `json:"Patient"`
}

func newTakeSlotRequestDTO(booking domain.Booking) takeSlotRequestDTO {
	return takeSlotRequestDTO{
		FacilityID: booking.FacilityID,
		Start:      booking.Start.Format(json_types.LayoutDateTime),
		End:        booking.End.Format(json_types.LayoutDateTime),
		Comments:   booking.Comments,
		Patient: patientDTO{
			Name:       booking.Patient.Name,
			SecondName: booking.Patient.SecondName,
			Email:      booking.Patient.Email,
			Phone:      booking.Patient.Phone,
		},
	}
}
