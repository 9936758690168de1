package slotapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/suchimauz/docplanner-slots-gateway/internal/config"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/json_types"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/retry"
)

const (
	operationGetWeeklyAvailability = "GetWeeklyAvailability"
	operationTakeSlot              = "TakeSlot"

	maxResponseBodySize = 4 << 20
)

type SlotAPIAdapter struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	logger   out.LoggerPort
}

func NewSlotAPIAdapter(cfg *config.Config, logger out.LoggerPort) *SlotAPIAdapter {
	return &SlotAPIAdapter{
		client:   &http.Client{Timeout: cfg.SlotAPI.Timeout},
		baseURL:  cfg.SlotAPI.URL,
		username: cfg.SlotAPI.Username,
		password: cfg.SlotAPI.Password,
		logger:   logger,
	}
}

func (a *SlotAPIAdapter) GetWeeklySchedule(ctx context.Context, monday time.Time) (*domain.WeeklySchedule, error) {
	mondayKey := monday.Format(json_types.LayoutDateCompact)
	a.logger.Info("slot_api.weekly_availability.fetch", out.LogFields{
		"monday": mondayKey,
	})

	url := fmt.Sprintf("%s/GetWeeklyAvailability/%s", a.baseURL, mondayKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		a.logger.Error("slot_api.weekly_availability.fetch_failed", out.LogFields{
			"monday": mondayKey,
			"error":  err.Error(),
		})
		return nil, retry.Permanent(fmt.Errorf("build weekly availability request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(a.username, a.password)

	status, body, err := a.do(req, operationGetWeeklyAvailability)
	if err != nil {
		a.logger.Error("slot_api.weekly_availability.fetch_failed", out.LogFields{
			"monday": mondayKey,
			"error":  err.Error(),
		})
		return nil, err
	}

	if status < 200 || status > 299 {
		a.logger.Error("slot_api.weekly_availability.fetch_failed", out.LogFields{
			"monday": mondayKey,
			"status": status,
		})
		return nil, &domain.UpstreamTransportError{
			Operation:  operationGetWeeklyAvailability,
			StatusCode: status,
			Body:       string(body),
		}
	}

	var response *weeklyAvailabilityDTO
	if err := json.Unmarshal(body, &response); err != nil {
		a.logger.Error("slot_api.weekly_availability.decode_response_failed", out.LogFields{
			"monday": mondayKey,
			"error":  err.Error(),
		})
		return nil, &domain.UpstreamDataError{Reason: "undeserializable weekly availability", Err: err}
	}
	if response == nil {
		return nil, &domain.UpstreamDataError{Reason: "weekly availability response is null"}
	}

	schedule := response.toDomain()

	a.logger.Debug("slot_api.weekly_availability.fetch_success", out.LogFields{
		"monday":     mondayKey,
		"facilityId": schedule.Facility.FacilityID,
	})

	return schedule, nil
}

func (a *SlotAPIAdapter) TakeSlot(ctx context.Context, booking domain.Booking) (domain.BookingOutcome, error) {
	a.logger.Info("slot_api.take_slot.send", out.LogFields{
		"facilityId": booking.FacilityID,
		"start":      booking.Start.Format(json_types.LayoutDateTime),
	})

	payload, err := json.Marshal(newTakeSlotRequestDTO(booking))
	if err != nil {
		return domain.BookingOutcome{}, retry.Permanent(fmt.Errorf("encode take slot request: %w", err))
	}

	url := fmt.Sprintf("%s/TakeSlot", a.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return domain.BookingOutcome{}, retry.Permanent(fmt.Errorf("build take slot request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(a.username, a.password)

	status, body, err := a.do(req, operationTakeSlot)
	if err != nil {
		a.logger.Error("slot_api.take_slot.send_failed", out.LogFields{
			"facilityId": booking.FacilityID,
			"error":      err.Error(),
		})
		return domain.BookingOutcome{}, err
	}

	message := strings.TrimSpace(string(body))

	switch {
	case status >= 200 && status <= 299:
		a.logger.Debug("slot_api.take_slot.accepted", out.LogFields{
			"facilityId": booking.FacilityID,
			"status":     status,
		})
		return domain.BookingOutcome{Accepted: true, Message: message}, nil
	case status >= 400 && status <= 499:
		if message == "" {
			message = http.StatusText(status)
		}
		a.logger.Warn("slot_api.take_slot.rejected", out.LogFields{
			"facilityId": booking.FacilityID,
			"status":     status,
			"message":    message,
		})
		return domain.BookingOutcome{Accepted: false, Message: message}, nil
	default:
		a.logger.Error("slot_api.take_slot.send_failed", out.LogFields{
			"facilityId": booking.FacilityID,
			"status":     status,
		})
		return domain.BookingOutcome{}, &domain.UpstreamTransportError{
			Operation:  operationTakeSlot,
			StatusCode: status,
			Body:       string(body),
		}
	}
}

func (a *SlotAPIAdapter) do(req *http.Request, operation string) (int, []byte, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, &domain.UpstreamTransportError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return 0, nil, &domain.UpstreamTransportError{Operation: operation, StatusCode: resp.StatusCode, Err: err}
	}

	return resp.StatusCode, body, nil
}
