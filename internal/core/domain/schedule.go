package domain

import (
	"fmt"
	"time"
)

// WeekDays порядок дней недели в расписании, начиная с понедельника
var WeekDays = [7]time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// WorkPeriod рабочий день учреждения, разделенный обеденным перерывом
// на два интервала: [StartHour, LunchStartHour) и [LunchEndHour, EndHour)
type WorkPeriod struct {
	StartHour      int `json:"startHour"`
	LunchStartHour int `json:"lunchStartHour"`
	LunchEndHour   int `json:"lunchEndHour"`
	EndHour        int `json:"endHour"`
}

func (p WorkPeriod) Validate() error {
	if p.StartHour < 0 ||
		p.StartHour > p.LunchStartHour ||
		p.LunchStartHour > p.LunchEndHour ||
		p.LunchEndHour > p.EndHour ||
		p.EndHour > 24 {
		return fmt.Errorf("work period hours out of order: %d-%d / %d-%d",
			p.StartHour, p.LunchStartHour, p.LunchEndHour, p.EndHour)
	}
	return nil
}

// Morning возвращает утренний интервал относительно полуночи дня
func (p WorkPeriod) Morning(day time.Time) (time.Time, time.Time) {
	return day.Add(time.Duration(p.StartHour) * time.Hour), day.Add(time.Duration(p.LunchStartHour) * time.Hour)
}

// Afternoon возвращает послеобеденный интервал относительно полуночи дня
func (p WorkPeriod) Afternoon(day time.Time) (time.Time, time.Time) {
	return day.Add(time.Duration(p.LunchEndHour) * time.Hour), day.Add(time.Duration(p.EndHour) * time.Hour)
}

// BusyInterval уже занятый промежуток [Start, End)
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && b.End.After(start)
}

type DaySchedule struct {
	// nil означает, что учреждение в этот день закрыто
	WorkPeriod *WorkPeriod
	BusySlots  []BusyInterval
}

type Facility struct {
	FacilityID string `json:"facilityId"`
	Name       string `json:"name"`
	Address    string `json:"address"`
}

// WeeklySchedule расписание учреждения на неделю, Days[0] понедельник
type WeeklySchedule struct {
	Facility            Facility
	SlotDurationMinutes int
	Days                [7]DaySchedule
}

func (s WeeklySchedule) SlotDuration() time.Duration {
	return time.Duration(s.SlotDurationMinutes) * time.Minute
}
