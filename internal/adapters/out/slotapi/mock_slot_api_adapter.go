package slotapi

import (
	"context"
	"strings"
	"time"

	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/json_types"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
)

const (
	MockFacilityID          = "Id1"
	mockSlotDurationMinutes = 20
	mockLatency             = 100 * time.Millisecond
)

// MockSlotAPIAdapter детерминированный сервис слотов для локальной разработки
type MockSlotAPIAdapter struct {
	latency time.Duration
	logger  out.LoggerPort
}

func NewMockSlotAPIAdapter(logger out.LoggerPort) *MockSlotAPIAdapter {
	return &MockSlotAPIAdapter{
		latency: mockLatency,
		logger:  logger,
	}
}

// Имитация сетевой задержки
func (a *MockSlotAPIAdapter) simulateLatency(ctx context.Context, operation string) error {
	if a.latency <= 0 {
		return nil
	}

	timer := time.NewTimer(a.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return &domain.UpstreamTransportError{Operation: operation, Err: ctx.Err()}
	case <-timer.C:
		return nil
	}
}

func (a *MockSlotAPIAdapter) GetWeeklySchedule(ctx context.Context, monday time.Time) (*domain.WeeklySchedule, error) {
	if err := a.simulateLatency(ctx, operationGetWeeklyAvailability); err != nil {
		return nil, err
	}

	a.logger.Debug("slot_api.mock.weekly_availability.fetch", out.LogFields{
		"monday": monday.Format(json_types.LayoutDateCompact),
	})

	schedule := &domain.WeeklySchedule{
		Facility: domain.Facility{
			FacilityID: MockFacilityID,
			Name:       "Mock facility",
			Address:    "Mock street 1",
		},
		SlotDurationMinutes: mockSlotDurationMinutes,
	}

	// Понедельник - пятница, обед с 14 до 15
	for i := 0; i < 5; i++ {
		schedule.Days[i] = domain.DaySchedule{
			WorkPeriod: &domain.WorkPeriod{StartHour: 10, LunchStartHour: 14, LunchEndHour: 15, EndHour: 17},
		}
	}

	// В понедельник 10:20-10:30 уже занято
	busyStart := monday.Add(10*time.Hour + 20*time.Minute)
	schedule.Days[0].BusySlots = []domain.BusyInterval{
		{Start: busyStart, End: busyStart.Add(10 * time.Minute)},
	}

	return schedule, nil
}

func (a *MockSlotAPIAdapter) TakeSlot(ctx context.Context, booking domain.Booking) (domain.BookingOutcome, error) {
	if err := a.simulateLatency(ctx, operationTakeSlot); err != nil {
		return domain.BookingOutcome{}, err
	}

	patient := booking.Patient
	if strings.TrimSpace(patient.Name) == "" ||
		strings.TrimSpace(patient.SecondName) == "" ||
		strings.TrimSpace(patient.Email) == "" {
		return domain.BookingOutcome{
			Accepted: false,
			Message:  "Invalid patient information: patient name, second name and email are required",
		}, nil
	}

	a.logger.Info("slot_api.mock.take_slot.accepted", out.LogFields{
		"facilityId": booking.FacilityID,
		"start":      booking.Start.Format(json_types.LayoutDateTime),
	})

	return domain.BookingOutcome{Accepted: true, Message: "Mock booking confirmed"}, nil
}
