package in

import (
	"context"

	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
)

type SlotUseCase interface {
	// Доступные слоты на неделю, monday в формате yyyyMMdd
	GetWeeklyAvailability(ctx context.Context, monday string) domain.Result[domain.WeeklyAvailability]

	// Запись на слот, после завершения без ошибки кэш недели сбрасывается
	BookSlot(ctx context.Context, request *domain.BookingRequest) domain.Result[bool]

	// Локальный сброс кэша недели, используется слушателем событий
	InvalidateWeek(ctx context.Context, monday string) error
}
