package calendar

import (
	"fmt"

	calendar "google.golang.org/api/calendar/v3"
)

// Normalize maps a raw API event into the canonical Event. It is total over
// structurally valid records: missing optional fields become explicit zero
// values. A record missing both an id and a start is malformed and yields
// ErrMalformedEvent; callers skip such records instead of aborting.
func Normalize(raw *calendar.Event) (Event, error) {
	if raw == nil || (raw.Id == "" && raw.Start == nil) {
		return Event{}, fmt.Errorf("%w: missing id and start", ErrMalformedEvent)
	}

	e := Event{
		ID:               raw.Id,
		Summary:          raw.Summary,
		Description:      raw.Description,
		Location:         raw.Location,
		Status:           raw.Status,
		Visibility:       raw.Visibility,
		Transparency:     raw.Transparency,
		HTMLLink:         raw.HtmlLink,
		Created:          raw.Created,
		Updated:          raw.Updated,
		Recurrence:       []string{},
		RecurringEventID: raw.RecurringEventId,
		Reminders:        Reminders{Overrides: []ReminderOverride{}},
		ColorID:          raw.ColorId,
		EventType:        raw.EventType,
		Attendees:        []Attendee{},
	}
	if e.Summary == "" {
		e.Summary = "No Title"
	}

	// All-day events carry date-only values and no timezone-qualified
	// instants; timed events carry RFC3339 instants.
	if raw.Start != nil {
		if raw.Start.Date != "" {
			e.AllDay = true
			e.StartTime = raw.Start.Date
		} else {
			e.StartTime = raw.Start.DateTime
			e.TimeZone = raw.Start.TimeZone
		}
	}
	if raw.End != nil {
		if e.AllDay {
			e.EndTime = raw.End.Date
		} else {
			e.EndTime = raw.End.DateTime
			if e.TimeZone == "" {
				e.TimeZone = raw.End.TimeZone
			}
		}
	}

	e.Recurrence = append(e.Recurrence, raw.Recurrence...)

	if raw.Reminders != nil {
		e.Reminders.UseDefault = raw.Reminders.UseDefault
		for _, o := range raw.Reminders.Overrides {
			if o == nil {
				continue
			}
			e.Reminders.Overrides = append(e.Reminders.Overrides, ReminderOverride{
				Method:  o.Method,
				Minutes: o.Minutes,
			})
		}
	}

	if raw.ConferenceData != nil {
		for _, ep := range raw.ConferenceData.EntryPoints {
			if ep != nil && ep.EntryPointType == "video" {
				e.ConferenceLink = ep.Uri
				break
			}
		}
	}

	if raw.Creator != nil {
		e.Creator = Person{
			Email:       raw.Creator.Email,
			DisplayName: raw.Creator.DisplayName,
			Self:        raw.Creator.Self,
		}
	}
	if raw.Organizer != nil {
		e.Organizer = Person{
			Email:       raw.Organizer.Email,
			DisplayName: raw.Organizer.DisplayName,
			Self:        raw.Organizer.Self,
		}
	}

	for _, a := range raw.Attendees {
		if a == nil {
			continue
		}
		att := Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
			Optional:       a.Optional,
			Organizer:      a.Organizer,
			Self:           a.Self,
		}
		if att.ResponseStatus == "" {
			att.ResponseStatus = "needsAction"
		}
		e.Attendees = append(e.Attendees, att)
	}
	e.AttendeesCount = len(e.Attendees)

	return e, nil
}
