package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/uae-home-services/service-booking/internal/common/domain"
)

// DateLayout is the wire format of scheduled dates.
const DateLayout = "2006-01-02"

var timeOfDayPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// Slot is a booked date and time of day, resolved to an instant in the
// marketplace time zone.
type Slot struct {
	Date string    `json:"date"`
	Time string    `json:"time"`
	At   time.Time `json:"at"`
}

// NewSlot validates date (YYYY-MM-DD) and HH:MM and resolves them in loc.
// The time is normalised to two-digit hours.
func NewSlot(date, hhmm string, loc *time.Location) (Slot, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return Slot{}, domain.NewValidationError(fmt.Sprintf("invalid scheduled date %q, expected YYYY-MM-DD", date))
	}
	hhmm = strings.TrimSpace(hhmm)
	if !timeOfDayPattern.MatchString(hhmm) {
		return Slot{}, domain.NewValidationError(fmt.Sprintf("invalid time format %q, expected HH:MM", hhmm))
	}
	hour, minute := splitTimeOfDay(hhmm)

	at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
	return Slot{
		Date: day.Format(DateLayout),
		Time: fmt.Sprintf("%02d:%02d", hour, minute),
		At:   at,
	}, nil
}

// IsValidTimeOfDay reports whether s is a 24h HH:MM time.
func IsValidTimeOfDay(s string) bool {
	return timeOfDayPattern.MatchString(s)
}

func splitTimeOfDay(hhmm string) (int, int) {
	parts := strings.SplitN(hhmm, ":", 2)
	hour, _ := strconv.Atoi(parts[0])
	minute, _ := strconv.Atoi(parts[1])
	return hour, minute
}
