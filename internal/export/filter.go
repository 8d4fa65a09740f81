package export

import (
	"github.com/aluizdacosta/calendar-export/internal/calendar"
)

// Mode selects which normalized events make it into the export.
type Mode string

const (
	// ModeAll includes every normalized event.
	ModeAll Mode = "all"

	// ModeAcceptedOnly includes only events the user organizes or has
	// accepted or tentatively accepted.
	ModeAcceptedOnly Mode = "accepted-only"
)

// ModeFor maps the accepted-only flag to a Mode.
func ModeFor(acceptedOnly bool) Mode {
	if acceptedOnly {
		return ModeAcceptedOnly
	}
	return ModeAll
}

// Include reports whether an event belongs in the export under the given
// mode. It is a pure predicate: the event is never mutated and no other
// state is consulted.
//
// Under accepted-only mode an event is included when the user is the
// organizer, or when the user's own attendee entry carries an accepted or
// tentative response. Events where the user appears in neither role are
// treated as not-yours and excluded.
func Include(e calendar.Event, mode Mode) bool {
	if mode != ModeAcceptedOnly {
		return true
	}

	if e.Organizer.Self {
		return true
	}
	for _, a := range e.Attendees {
		if a.Self {
			return a.ResponseStatus == "accepted" || a.ResponseStatus == "tentative"
		}
	}
	return false
}
