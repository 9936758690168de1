package out

import (
	"context"
	"time"

	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
)

type AvailabilityCachePort interface {
	GetWeeklyAvailability(ctx context.Context, key string) (domain.WeeklyAvailability, bool)
	StoreWeeklyAvailability(ctx context.Context, key string, availability domain.WeeklyAvailability, ttl time.Duration)
	InvalidateWeeklyAvailability(ctx context.Context, key string)
}
