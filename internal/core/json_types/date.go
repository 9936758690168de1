package json_types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	LayoutDateTime         = "2006-01-02 15:04:05"
	LayoutDateTimeISO      = "2006-01-02T15:04:05"
	LayoutDateCompact      = "20060102"
	LayoutDateTimeFraction = "2006-01-02T15:04:05.999999999"
)

// ParseDateTime парсит дату-время внешнего сервиса. Даты без таймзоны считаем UTC.
func ParseDateTime(str string) (time.Time, error) {
	str = strings.TrimSpace(str)

	parsedDate, err := time.Parse(time.RFC3339, str)
	if err == nil {
		return parsedDate.UTC(), nil
	}

	for _, layout := range []string{LayoutDateTimeISO, LayoutDateTime, LayoutDateTimeFraction} {
		parsedDate, err = time.ParseInLocation(layout, str, time.UTC)
		if err == nil {
			return parsedDate, nil
		}
	}

	return time.Time{}, fmt.Errorf("failed to parse date time %q", str)
}

// DateTime сериализуется как "yyyy-MM-dd HH:mm:ss"
type DateTime struct {
	Date time.Time
}

func NewDateTime(t time.Time) DateTime {
	return DateTime{Date: t}
}

func (t *DateTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = DateTime{}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("failed to parse date time: %w", err)
	}

	parsedDate, err := ParseDateTime(str)
	if err != nil {
		return err
	}

	*t = DateTime{Date: parsedDate}
	return nil
}

func (t DateTime) MarshalJSON() ([]byte, error) {
	if t.Date.IsZero() {
		return json.Marshal(nil)
	}
	return json.Marshal(t.Date.Format(LayoutDateTime))
}

func (t DateTime) String() string {
	return t.Date.Format(LayoutDateTime)
}
