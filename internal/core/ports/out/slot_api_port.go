package out

import (
	"context"
	"time"

	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
)

type ScheduleSourcePort interface {
	// Недельное расписание учреждения, начиная с понедельника monday
	GetWeeklySchedule(ctx context.Context, monday time.Time) (*domain.WeeklySchedule, error)
}

type BookingSinkPort interface {
	// Ошибка возвращается только при сетевых сбоях и 5xx,
	// бизнес-отказ приходит как BookingOutcome{Accepted: false}
	TakeSlot(ctx context.Context, booking domain.Booking) (domain.BookingOutcome, error)
}

// SlotAPIPort внешний сервис слотов целиком
type SlotAPIPort interface {
	ScheduleSourcePort
	BookingSinkPort
}
