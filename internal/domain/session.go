package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is the recurring delivery interval for an authorized session.
// The symbolic name (not the duration) is what gets persisted, so the
// name-to-duration mapping can change without rewriting old records.
type Period string

const (
	PeriodMinute      Period = "minute"
	PeriodHour        Period = "hour"
	PeriodThreeHours  Period = "three_hours"
	PeriodSixHours    Period = "six_hours"
	PeriodTwelveHours Period = "twelve_hours"
	PeriodDay         Period = "day"
)

var periodDurations = map[Period]time.Duration{
	PeriodMinute:      time.Minute,
	PeriodHour:        time.Hour,
	PeriodThreeHours:  3 * time.Hour,
	PeriodSixHours:    6 * time.Hour,
	PeriodTwelveHours: 12 * time.Hour,
	PeriodDay:         24 * time.Hour,
}

// ParsePeriod converts a symbolic period name into a Period.
// Unknown names are an error, never a silent default.
func ParsePeriod(name string) (Period, error) {
	p := Period(name)
	if _, ok := periodDurations[p]; !ok {
		return "", fmt.Errorf("unknown period name %q", name)
	}
	return p, nil
}

// Duration returns the fixed duration the period maps to (0 for an
// invalid period; callers only hold periods built via ParsePeriod or
// the constants).
func (p Period) Duration() time.Duration {
	return periodDurations[p]
}

// Schedule is the recurring-delivery timing rule of one authorized
// session: an anchor instant whose time of day the fires align to,
// plus a fixed period.
type Schedule struct {
	AnchorTime time.Time `json:"anchorTime"`
	Period     Period    `json:"period"`
}

// NextFire returns the earliest instant strictly after now that has the
// anchor's time of day, composed with the current calendar date. If that
// composed instant has already passed it is advanced by whole multiples
// of the period, so a sub-daily period recovers into the current cycle
// rather than waiting for "same time tomorrow".
func (s Schedule) NextFire(now time.Time) time.Time {
	loc := s.AnchorTime.Location()
	n := now.In(loc)

	candidate := time.Date(n.Year(), n.Month(), n.Day(),
		s.AnchorTime.Hour(), s.AnchorTime.Minute(), s.AnchorTime.Second(), 0, loc)
	if candidate.After(now) {
		return candidate
	}

	step := s.Period.Duration()
	missed := now.Sub(candidate)/step + 1
	return candidate.Add(missed * step)
}

// SessionStatus is the authorization phase of a session. An absent
// session (no registry entry) is the unauthenticated phase; transitions
// only move forward: absent -> pending_callback -> authorized.
type SessionStatus string

const (
	StatusPendingCallback SessionStatus = "pending_callback"
	StatusAuthorized      SessionStatus = "authorized"
)

// Session is the long-lived authorization/delivery context of one chat.
type Session struct {
	ChatID      int64         `json:"chatId"`
	Status      SessionStatus `json:"status"`
	RequestCode string        `json:"-"` // set while pending_callback
	AccessToken string        `json:"-"` // set once authorized
	Schedule    *Schedule     `json:"schedule,omitempty"`
}

const (
	recordDelimiter  = "::"
	recordFieldCount = 4

	// RFC-2822 style timestamp with a numeric zone; unambiguous to
	// parse back and readable in the raw log file.
	recordTimeLayout = time.RFC1123Z
)

// PersistedRecord is the durable projection of an authorized session,
// appended to the session log exactly once, when the session first
// becomes authorized.
type PersistedRecord struct {
	ChatID      int64
	AccessToken string
	AnchorTime  time.Time
	Period      Period
}

// Encode renders the record as a single log line:
//
//	<chatId>::<token>::<anchor RFC1123Z>::<period name>
func (r PersistedRecord) Encode() string {
	return strings.Join([]string{
		strconv.FormatInt(r.ChatID, 10),
		r.AccessToken,
		r.AnchorTime.Format(recordTimeLayout),
		string(r.Period),
	}, recordDelimiter)
}

// ParseRecord parses one log line back into a record. Wrong field
// count, an unparsable timestamp or an unknown period name are errors;
// a schedule must never be silently misread.
func ParseRecord(line string) (PersistedRecord, error) {
	fields := strings.Split(line, recordDelimiter)
	if len(fields) != recordFieldCount {
		return PersistedRecord{}, fmt.Errorf("expected %d fields, got %d", recordFieldCount, len(fields))
	}

	chatID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return PersistedRecord{}, fmt.Errorf("invalid chat id %q: %w", fields[0], err)
	}

	if fields[1] == "" {
		return PersistedRecord{}, fmt.Errorf("empty access token for chat %d", chatID)
	}

	anchor, err := time.Parse(recordTimeLayout, fields[2])
	if err != nil {
		return PersistedRecord{}, fmt.Errorf("invalid anchor timestamp %q: %w", fields[2], err)
	}

	period, err := ParsePeriod(fields[3])
	if err != nil {
		return PersistedRecord{}, err
	}

	return PersistedRecord{
		ChatID:      chatID,
		AccessToken: fields[1],
		AnchorTime:  anchor,
		Period:      period,
	}, nil
}
