package utils

import (
	"errors"
	"time"

	"github.com/suchimauz/docplanner-slots-gateway/internal/core/json_types"
)

var (
	ErrMondayKeyFormat = errors.New("date must be in yyyyMMdd format")
	ErrNotMonday       = errors.New("date must correspond to a Monday")
)

const availabilityCacheKeyPrefix = "weekly_availability_"

func StartCurrentDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// MondayOf округляет дату вниз до понедельника ее недели, время 00:00
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return StartCurrentDay(t).AddDate(0, 0, -offset)
}

func MondayKey(t time.Time) string {
	return MondayOf(t).Format(json_types.LayoutDateCompact)
}

func AvailabilityCacheKey(mondayKey string) string {
	return availabilityCacheKeyPrefix + mondayKey
}

// ParseMondayKey строго парсит "yyyyMMdd": ровно 8 цифр, реальная дата, понедельник.
// При ErrNotMonday вместе с ошибкой возвращается распарсенная дата.
func ParseMondayKey(str string) (time.Time, error) {
	if len(str) != 8 {
		return time.Time{}, ErrMondayKeyFormat
	}
	for _, r := range str {
		if r < '0' || r > '9' {
			return time.Time{}, ErrMondayKeyFormat
		}
	}

	date, err := time.ParseInLocation(json_types.LayoutDateCompact, str, time.UTC)
	if err != nil {
		return time.Time{}, ErrMondayKeyFormat
	}

	if date.Weekday() != time.Monday {
		return date, ErrNotMonday
	}

	return date, nil
}
