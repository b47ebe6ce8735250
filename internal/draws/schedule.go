// Package draws resolves lottery draw identifiers to calendar dates.
// Draws run Monday, Wednesday and Friday; the draw id is the ISO weekday
// (Monday=1 ... Sunday=7) of the wanted draw day.
package draws

import (
	"errors"
	"fmt"
	"time"
)

// DrawTime is when every draw closes.
const DrawTime = "11:45 PM"

var ErrUnknownDraw = errors.New("unknown draw day")

var drawDays = map[int]struct{}{1: {}, 3: {}, 5: {}}

// Draw is one resolved upcoming draw.
type Draw struct {
	Day       int    `json:"day"`
	Date      string `json:"draw_date"` // d-m-yyyy
	Time      string `json:"draw_time"`
	Countdown string `json:"countdown"` // yyyy-m-d 23:45:00, the UI countdown target
}

// isoWeekday maps time.Weekday to ISO numbering (Monday=1, Sunday=7).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// nextDate finds the next calendar date whose ISO weekday is day. A draw on
// today's weekday is still "this week": tickets sell until the 23:45 cutoff.
func nextDate(day int, now time.Time) time.Time {
	today := isoWeekday(now)
	if today <= day {
		return now.AddDate(0, 0, day-today)
	}
	return now.AddDate(0, 0, 7-today+day)
}

// Next resolves the upcoming draw for the given draw day.
func Next(day int, now time.Time) (Draw, error) {
	if _, ok := drawDays[day]; !ok {
		return Draw{}, ErrUnknownDraw
	}
	d := nextDate(day, now)
	return Draw{
		Day:       day,
		Date:      fmt.Sprintf("%d-%d-%d", d.Day(), int(d.Month()), d.Year()),
		Time:      DrawTime,
		Countdown: fmt.Sprintf("%d-%d-%d 23:45:00", d.Year(), int(d.Month()), d.Day()),
	}, nil
}

// GameID derives the game identifier from the stake tier.
func GameID(stake string) string {
	return "Simple-" + stake
}

// TransDate formats a ledger entry date (d-m-yyyy).
func TransDate(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Day(), int(t.Month()), t.Year())
}
