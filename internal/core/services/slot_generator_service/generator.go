package slot_generator_service

import (
	"time"

	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
)

// GenerateSlots нарезает интервал [periodStart, periodEnd) на слоты фиксированной длины
// и отбрасывает те, что пересекаются хотя бы с одним занятым интервалом.
// Слот, выходящий за periodEnd, не генерируется.
func GenerateSlots(periodStart, periodEnd time.Time, slotDuration time.Duration, busy []domain.BusyInterval, dayName string) []domain.AvailableSlot {
	slots := make([]domain.AvailableSlot, 0)
	if slotDuration <= 0 {
		return slots
	}

	for slotStart := periodStart; !slotStart.Add(slotDuration).After(periodEnd); slotStart = slotStart.Add(slotDuration) {
		slotEnd := slotStart.Add(slotDuration)
		if isBusy(busy, slotStart, slotEnd) {
			continue
		}

		slots = append(slots, domain.AvailableSlot{
			Start:       slotStart,
			End:         slotEnd,
			DayOfWeek:   dayName,
			IsAvailable: true,
		})
	}

	return slots
}

func isBusy(busy []domain.BusyInterval, slotStart, slotEnd time.Time) bool {
	for _, b := range busy {
		if b.Overlaps(slotStart, slotEnd) {
			return true
		}
	}
	return false
}

// ExpandWeek собирает слоты за всю неделю: понедельник -> воскресенье,
// внутри дня сначала утро, потом время после обеда.
func ExpandWeek(schedule domain.WeeklySchedule, monday time.Time) []domain.AvailableSlot {
	slots := make([]domain.AvailableSlot, 0)
	slotDuration := schedule.SlotDuration()

	for offset, day := range schedule.Days {
		if day.WorkPeriod == nil {
			continue
		}

		dayDate := monday.AddDate(0, 0, offset)
		dayName := domain.WeekDays[offset].String()

		morningStart, morningEnd := day.WorkPeriod.Morning(dayDate)
		slots = append(slots, GenerateSlots(morningStart, morningEnd, slotDuration, day.BusySlots, dayName)...)

		afternoonStart, afternoonEnd := day.WorkPeriod.Afternoon(dayDate)
		slots = append(slots, GenerateSlots(afternoonStart, afternoonEnd, slotDuration, day.BusySlots, dayName)...)
	}

	return slots
}
