package calendar

import (
	calendar "google.golang.org/api/calendar/v3"
)

// Event is the canonical, immutable export record for a calendar event.
// Every field is always present in the JSON encoding; missing source data
// maps to explicit zero values, never to omitted keys. The field names are
// a compatibility contract for downstream consumers.
type Event struct {
	ID               string     `json:"id"`
	Summary          string     `json:"summary"`
	Description      string     `json:"description"`
	Location         string     `json:"location"`
	StartTime        string     `json:"start_time"`
	EndTime          string     `json:"end_time"`
	AllDay           bool       `json:"all_day"`
	TimeZone         string     `json:"timezone"`
	Status           string     `json:"status"`
	Visibility       string     `json:"visibility"`
	Transparency     string     `json:"transparency"`
	HTMLLink         string     `json:"html_link"`
	Created          string     `json:"created"`
	Updated          string     `json:"updated"`
	Recurrence       []string   `json:"recurrence"`
	RecurringEventID string     `json:"recurring_event_id"`
	Reminders        Reminders  `json:"reminders"`
	ConferenceLink   string     `json:"conference_link"`
	ColorID          string     `json:"color_id"`
	EventType        string     `json:"event_type"`
	Creator          Person     `json:"creator"`
	Organizer        Person     `json:"organizer"`
	Attendees        []Attendee `json:"attendees"`
	AttendeesCount   int        `json:"attendees_count"`
}

// Person identifies an event creator or organizer. Self marks the
// authenticated user.
type Person struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Self        bool   `json:"self"`
}

// Attendee is one entry of an event's attendee list.
type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	ResponseStatus string `json:"response_status"` // accepted, tentative, declined, needsAction
	Optional       bool   `json:"optional"`
	Organizer      bool   `json:"organizer"`
	Self           bool   `json:"self"`
}

// Reminders holds the reminder configuration of an event.
type Reminders struct {
	UseDefault bool               `json:"use_default"`
	Overrides  []ReminderOverride `json:"overrides"`
}

// ReminderOverride is a single non-default reminder.
type ReminderOverride struct {
	Method  string `json:"method"` // email, popup
	Minutes int64  `json:"minutes"`
}

// CalendarInfo describes a calendar from the user's calendar list.
type CalendarInfo struct {
	ID              string `json:"id"`
	Summary         string `json:"summary"`
	Description     string `json:"description"`
	Primary         bool   `json:"primary"`
	AccessRole      string `json:"access_role"` // owner, writer, reader, freeBusyReader
	ColorID         string `json:"color_id"`
	BackgroundColor string `json:"background_color"`
	ForegroundColor string `json:"foreground_color"`
}

// ColorDefinition maps a color id to its hex values.
type ColorDefinition struct {
	Background string `json:"background"`
	Foreground string `json:"foreground"`
}

// ColorDefinitions holds the account-wide palette for calendars and events.
type ColorDefinitions struct {
	Calendar map[string]ColorDefinition `json:"calendar"`
	Event    map[string]ColorDefinition `json:"event"`
}

// toCalendarInfo converts a calendar list entry to CalendarInfo.
func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	if entry == nil {
		return CalendarInfo{}
	}
	return CalendarInfo{
		ID:              entry.Id,
		Summary:         entry.Summary,
		Description:     entry.Description,
		Primary:         entry.Primary,
		AccessRole:      entry.AccessRole,
		ColorID:         entry.ColorId,
		BackgroundColor: entry.BackgroundColor,
		ForegroundColor: entry.ForegroundColor,
	}
}

// toColorDefinitions converts the colors resource to the export palette.
func toColorDefinitions(colors *calendar.Colors) ColorDefinitions {
	defs := ColorDefinitions{
		Calendar: map[string]ColorDefinition{},
		Event:    map[string]ColorDefinition{},
	}
	if colors == nil {
		return defs
	}
	for id, c := range colors.Calendar {
		defs.Calendar[id] = ColorDefinition{Background: c.Background, Foreground: c.Foreground}
	}
	for id, c := range colors.Event {
		defs.Event[id] = ColorDefinition{Background: c.Background, Foreground: c.Foreground}
	}
	return defs
}
