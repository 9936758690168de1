package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/json_types"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/retry"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/services/slot_generator_service"
	"github.com/suchimauz/docplanner-slots-gateway/internal/utils"
	"golang.org/x/sync/singleflight"
)

const (
	operationGetWeeklyAvailability = "GetWeeklyAvailability"
	operationTakeSlot              = "TakeSlot"
)

type SlotService struct {
	source    out.ScheduleSourcePort
	sink      out.BookingSinkPort
	cachePort out.AvailabilityCachePort
	publisher out.EventPublisherPort
	retry     *retry.Executor
	cacheTTL  time.Duration
	origin    string
	logger    out.LoggerPort
	fetches   singleflight.Group
}

func NewSlotService(
	slotAPI out.SlotAPIPort,
	cachePort out.AvailabilityCachePort,
	executor *retry.Executor,
	cacheTTL time.Duration,
	logger out.LoggerPort,
) *SlotService {
	return &SlotService{
		source:    slotAPI,
		sink:      slotAPI,
		cachePort: cachePort,
		retry:     executor,
		cacheTTL:  cacheTTL,
		logger:    logger.WithModule("SlotService"),
	}
}

// SetEventPublisher включает рассылку событий инвалидации другим инстансам
func (s *SlotService) SetEventPublisher(publisher out.EventPublisherPort, origin string) {
	s.publisher = publisher
	s.origin = origin
}

func (s *SlotService) log(ctx context.Context) out.LoggerPort {
	if requestID := utils.RequestID(ctx); requestID != "" {
		return s.logger.WithFields(out.LogFields{"requestId": requestID})
	}
	return s.logger
}

func (s *SlotService) GetWeeklyAvailability(ctx context.Context, monday string) (result domain.Result[domain.WeeklyAvailability]) {
	logger := s.log(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("slots.week.panic", out.LogFields{
				"monday": monday,
				"panic":  fmt.Sprint(r),
			})
			result = domain.Fail[domain.WeeklyAvailability](domain.ErrorKindUnexpected,
				"Unexpected error while fetching availability", fmt.Sprint(r))
		}
	}()

	mondayDate, invalid := validateMonday(monday)
	if invalid != nil {
		logger.Warn("slots.week.invalid_input", out.LogFields{
			"monday": monday,
			"error":  invalid.Error(),
		})
		return domain.Fail[domain.WeeklyAvailability](domain.ErrorKindInvalidInput, invalid.Message, invalid.Fields...)
	}

	key := utils.AvailabilityCacheKey(monday)
	if availability, ok := s.cachePort.GetWeeklyAvailability(ctx, key); ok {
		logger.Debug("slots.week.cache.hit", out.LogFields{
			"monday":     monday,
			"slotsCount": len(availability.Slots),
		})
		return domain.Ok(availability, retrievedMessage(availability, monday))
	}

	logger.Debug("slots.week.cache.miss", out.LogFields{
		"monday": monday,
	})

	// Параллельные промахи по одному ключу схлопываются в один запрос.
	// Общий запрос не зависит от отмены контекста того, кто пришел первым.
	fetchCtx := context.WithoutCancel(ctx)
	value, err, shared := s.fetches.Do(key, func() (interface{}, error) {
		return s.fetchWeek(fetchCtx, key, mondayDate)
	})
	if err != nil {
		kind := domain.ClassifyError(err)
		logger.Error("slots.week.fetch_failed", out.LogFields{
			"monday": monday,
			"kind":   kind,
			"error":  err.Error(),
		})
		return domain.Fail[domain.WeeklyAvailability](kind, availabilityFailureMessage(kind), err.Error())
	}

	availability := value.(domain.WeeklyAvailability)
	logger.Info("slots.week.fetched", out.LogFields{
		"monday":     monday,
		"facilityId": availability.FacilityID,
		"slotsCount": len(availability.Slots),
		"shared":     shared,
	})

	return domain.Ok(availability, retrievedMessage(availability, monday))
}

func retrievedMessage(availability domain.WeeklyAvailability, monday string) string {
	return fmt.Sprintf("Retrieved %d slots for week starting %s", len(availability.Slots), monday)
}

func (s *SlotService) fetchWeek(ctx context.Context, key string, monday time.Time) (domain.WeeklyAvailability, error) {
	// Кэш мог заполниться, пока ждали своей очереди
	if availability, ok := s.cachePort.GetWeeklyAvailability(ctx, key); ok {
		return availability, nil
	}

	schedule, err := retry.Do(ctx, s.retry, operationGetWeeklyAvailability, func(ctx context.Context) (*domain.WeeklySchedule, error) {
		return s.source.GetWeeklySchedule(ctx, monday)
	})
	if err != nil {
		return domain.WeeklyAvailability{}, err
	}

	if err := validateSchedule(schedule); err != nil {
		return domain.WeeklyAvailability{}, err
	}

	availability := domain.WeeklyAvailability{
		FacilityID: schedule.Facility.FacilityID,
		Slots:      slot_generator_service.ExpandWeek(*schedule, monday),
	}

	s.cachePort.StoreWeeklyAvailability(ctx, key, availability, s.cacheTTL)

	return availability, nil
}

func (s *SlotService) BookSlot(ctx context.Context, request *domain.BookingRequest) (result domain.Result[bool]) {
	logger := s.log(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("slots.book.panic", out.LogFields{
				"panic": fmt.Sprint(r),
			})
			result = domain.Fail[bool](domain.ErrorKindUnexpected, "Unexpected error while taking slot", fmt.Sprint(r))
		}
	}()

	booking, invalid := validateBookingRequest(request)
	if invalid != nil {
		logger.Warn("slots.book.invalid_input", out.LogFields{
			"error":  invalid.Error(),
			"fields": invalid.Fields,
		})
		return domain.Fail[bool](domain.ErrorKindInvalidInput, invalid.Message, invalid.Fields...)
	}

	outcome, err := retry.Do(ctx, s.retry, operationTakeSlot, func(ctx context.Context) (domain.BookingOutcome, error) {
		return s.sink.TakeSlot(ctx, booking)
	})
	if err != nil {
		kind := domain.ClassifyError(err)
		logger.Error("slots.book.failed", out.LogFields{
			"facilityId": booking.FacilityID,
			"start":      request.Start,
			"kind":       kind,
			"error":      err.Error(),
		})
		return domain.Fail[bool](kind, "Error taking slot", err.Error())
	}

	// Сервис ответил (успехом или отказом): состояние недели могло измениться
	s.invalidateAfterBooking(ctx, logger, utils.MondayKey(booking.Start))

	if !outcome.Accepted {
		logger.Info("slots.book.rejected", out.LogFields{
			"facilityId": booking.FacilityID,
			"start":      request.Start,
			"message":    outcome.Message,
		})
		return domain.Fail[bool](domain.ErrorKindRejected, outcome.Message)
	}

	logger.Info("slots.book.accepted", out.LogFields{
		"facilityId": booking.FacilityID,
		"start":      request.Start,
	})

	return domain.Ok(true, outcome.Message)
}

func (s *SlotService) invalidateAfterBooking(ctx context.Context, logger out.LoggerPort, mondayKey string) {
	s.cachePort.InvalidateWeeklyAvailability(ctx, utils.AvailabilityCacheKey(mondayKey))
	logger.Debug("slots.week.cache.invalidated", out.LogFields{
		"monday": mondayKey,
	})

	if s.publisher == nil {
		return
	}

	event := out.AvailabilityInvalidatedEvent{
		ID:         uuid.NewString(),
		Monday:     mondayKey,
		Origin:     s.origin,
		Reason:     out.InvalidationReasonBooking,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.PublishAvailabilityInvalidated(ctx, event); err != nil {
		logger.Warn("slots.week.invalidation.publish_failed", out.LogFields{
			"monday": mondayKey,
			"error":  err.Error(),
		})
	}
}

func (s *SlotService) InvalidateWeek(ctx context.Context, monday string) error {
	if _, invalid := validateMonday(monday); invalid != nil {
		return invalid
	}

	s.cachePort.InvalidateWeeklyAvailability(ctx, utils.AvailabilityCacheKey(monday))
	s.log(ctx).Info("slots.week.cache.invalidated", out.LogFields{
		"monday": monday,
		"source": "event",
	})
	return nil
}

func validateMonday(monday string) (time.Time, *domain.InvalidInputError) {
	if strings.TrimSpace(monday) == "" {
		return time.Time{}, domain.NewInvalidInput("Monday date is required", "monday must not be empty")
	}

	date, err := utils.ParseMondayKey(monday)
	switch {
	case errors.Is(err, utils.ErrNotMonday):
		return time.Time{}, domain.NewInvalidInput(
			fmt.Sprintf("Date %s must correspond to a Monday", monday),
			fmt.Sprintf("%s is a %s", monday, date.Weekday()))
	case err != nil:
		// Частая ошибка клиентов: дата в ISO формате вместо yyyyMMdd
		if iso, isoErr := time.Parse("2006-01-02", monday); isoErr == nil && iso.Weekday() != time.Monday {
			return time.Time{}, domain.NewInvalidInput(
				fmt.Sprintf("Date %s must be in yyyyMMdd format and must correspond to a Monday", monday),
				fmt.Sprintf("%s is a %s", monday, iso.Weekday()))
		}
		return time.Time{}, domain.NewInvalidInput(
			fmt.Sprintf("Date %s must be in yyyyMMdd format", monday),
			"monday must be exactly 8 digits")
	}

	return date, nil
}

func validateBookingRequest(request *domain.BookingRequest) (domain.Booking, *domain.InvalidInputError) {
	if request == nil {
		return domain.Booking{}, domain.NewInvalidInput("Booking request is required", "request must not be null")
	}

	start, startErr := time.ParseInLocation(json_types.LayoutDateTime, request.Start, time.UTC)
	end, endErr := time.ParseInLocation(json_types.LayoutDateTime, request.End, time.UTC)

	var invalidFields []string
	if startErr != nil {
		invalidFields = append(invalidFields, "start")
	}
	if endErr != nil {
		invalidFields = append(invalidFields, "end")
	}
	if len(invalidFields) > 0 {
		details := make([]string, 0, len(invalidFields))
		for _, field := range invalidFields {
			details = append(details, fmt.Sprintf("%s must be in yyyy-MM-dd HH:mm:ss format", field))
		}
		return domain.Booking{}, domain.NewInvalidInput(
			fmt.Sprintf("Invalid date format for field(s): %s", strings.Join(invalidFields, ", ")),
			details...)
	}

	if !end.After(start) {
		return domain.Booking{}, domain.NewInvalidInput("Slot end must be after slot start", "end must be after start")
	}

	if request.Patient == nil {
		return domain.Booking{}, domain.NewInvalidInput("Patient information is required", "patient must not be null")
	}

	return domain.Booking{
		FacilityID: request.FacilityID,
		Start:      start,
		End:        end,
		Comments:   request.Comments,
		Patient:    *request.Patient,
	}, nil
}

func validateSchedule(schedule *domain.WeeklySchedule) error {
	if schedule == nil {
		return &domain.UpstreamDataError{Reason: "empty weekly availability response"}
	}
	if strings.TrimSpace(schedule.Facility.FacilityID) == "" {
		return &domain.UpstreamDataError{Reason: "facility data is missing or incomplete"}
	}
	if schedule.SlotDurationMinutes <= 0 {
		return &domain.UpstreamDataError{Reason: fmt.Sprintf("slot duration %d is invalid", schedule.SlotDurationMinutes)}
	}
	for i, day := range schedule.Days {
		if day.WorkPeriod == nil {
			continue
		}
		if err := day.WorkPeriod.Validate(); err != nil {
			return &domain.UpstreamDataError{Reason: domain.WeekDays[i].String(), Err: err}
		}
	}
	return nil
}

func availabilityFailureMessage(kind domain.ErrorKind) string {
	switch kind {
	case domain.ErrorKindUpstreamData:
		return "Slot service returned invalid availability data"
	case domain.ErrorKindUpstreamTransport:
		return "Slot service is unavailable"
	default:
		return "Unexpected error while fetching availability"
	}
}
