package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/formationpro/fichepresence/core"
)

const isoDate = "2006-01-02"

// NewSheet returns the default form state: one blank slot dated today and one blank participant.
func NewSheet(today time.Time) Sheet {
	return Sheet{
		Slots:        []TimeSlot{NewTimeSlot(today)},
		Participants: []Participant{{}},
	}
}

// NewTimeSlot returns a slot dated `today` with empty times.
func NewTimeSlot(today time.Time) TimeSlot {
	return TimeSlot{Date: today.Format(isoDate)}
}

func (s Sheet) clone() Sheet {
	c := Sheet{Meta: s.Meta}
	if s.Slots != nil {
		c.Slots = make([]TimeSlot, len(s.Slots))
		copy(c.Slots, s.Slots)
	}
	if s.Participants != nil {
		c.Participants = make([]Participant, len(s.Participants))
		copy(c.Participants, s.Participants)
	}
	return c
}

func (s Sheet) UpdateMeta(field, value string) (Sheet, error) {
	c := s.clone()
	switch field {
	case MetaTitle:
		c.Meta.Title = value
	case MetaTotalDuration:
		c.Meta.TotalDuration = value
	case MetaInstructor:
		c.Meta.Instructor = value
	default:
		return s, ErrUnknownField
	}
	return c, nil
}

func (s Sheet) AddTimeSlot(today time.Time) Sheet {
	c := s.clone()
	c.Slots = append(c.Slots, NewTimeSlot(today))
	return c
}

func (s Sheet) UpdateTimeSlot(idx int, field, value string) (Sheet, error) {
	if idx < 0 || idx >= len(s.Slots) {
		return s, ErrIndexOutOfRange
	}
	c := s.clone()
	switch field {
	case SlotDate:
		c.Slots[idx].Date = value
	case SlotStart:
		c.Slots[idx].Start = value
	case SlotEnd:
		c.Slots[idx].End = value
	default:
		return s, ErrUnknownField
	}
	return c, nil
}

func (s Sheet) RemoveTimeSlot(idx int) (Sheet, error) {
	if idx < 0 || idx >= len(s.Slots) {
		return s, ErrIndexOutOfRange
	}
	c := s.clone()
	c.Slots = append(c.Slots[:idx], c.Slots[idx+1:]...)
	return c, nil
}

func (s Sheet) AddParticipant() Sheet {
	c := s.clone()
	c.Participants = append(c.Participants, Participant{})
	return c
}

func (s Sheet) UpdateParticipant(idx int, field, value string) (Sheet, error) {
	if idx < 0 || idx >= len(s.Participants) {
		return s, ErrIndexOutOfRange
	}
	c := s.clone()
	switch field {
	case ParticipantLastName:
		c.Participants[idx].LastName = value
	case ParticipantFirstName:
		c.Participants[idx].FirstName = value
	default:
		return s, ErrUnknownField
	}
	return c, nil
}

func (s Sheet) RemoveParticipant(idx int) (Sheet, error) {
	if idx < 0 || idx >= len(s.Participants) {
		return s, ErrIndexOutOfRange
	}
	c := s.clone()
	c.Participants = append(c.Participants[:idx], c.Participants[idx+1:]...)
	return c, nil
}

// Hydrate replaces the whole form state with the remote session record.
// Times are truncated to HH:MM and dates to YYYY-MM-DD.
func (s Sheet) Hydrate(rec SessionRecord) Sheet {
	c := Sheet{
		Meta:         rec.Meta,
		Slots:        make([]TimeSlot, 0, len(rec.Slots)),
		Participants: make([]Participant, 0, len(rec.Participants)),
	}
	for _, slot := range rec.Slots {
		c.Slots = append(c.Slots, TimeSlot{
			Date:  truncateDate(slot.Date),
			Start: truncateTime(slot.Start),
			End:   truncateTime(slot.End),
		})
	}
	c.Participants = append(c.Participants, rec.Participants...)
	return c
}

// Clean trims every text input.
func (s Sheet) Clean() Sheet {
	c := s.clone()
	c.Meta.Title = core.CleanString(c.Meta.Title)
	c.Meta.TotalDuration = core.CleanString(c.Meta.TotalDuration)
	c.Meta.Instructor = core.CleanString(c.Meta.Instructor)
	for i := range c.Slots {
		c.Slots[i].Date = core.CleanString(c.Slots[i].Date)
		c.Slots[i].Start = core.CleanString(c.Slots[i].Start)
		c.Slots[i].End = core.CleanString(c.Slots[i].End)
	}
	for i := range c.Participants {
		c.Participants[i].LastName = core.CleanString(c.Participants[i].LastName)
		c.Participants[i].FirstName = core.CleanString(c.Participants[i].FirstName)
	}
	return c
}

// Validate checks every input is filled in, like the console form does.
func (s Sheet) Validate(validate *validator.Validate) error {
	return validate.Struct(s)
}

// truncateTime keeps hours and minutes of "HH:MM[:SS[.sss]]".
func truncateTime(t string) string {
	t = core.CleanString(t)
	if len(t) > 5 && t[2] == ':' {
		return t[:5]
	}
	return t
}

// truncateDate keeps the date part of an ISO datetime.
func truncateDate(d string) string {
	d = core.CleanString(d)
	if len(d) > len(isoDate) {
		if _, err := time.Parse(isoDate, d[:len(isoDate)]); err == nil {
			return d[:len(isoDate)]
		}
	}
	return d
}
