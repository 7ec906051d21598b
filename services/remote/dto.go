package remotesvc

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/formationpro/fichepresence/core/attendance"
)

// flexString decodes JSON strings and numbers alike; null decodes to "".
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Wrap(err, "decoding string or number")
	}
	*s = flexString(n.String())
	return nil
}

type (
	slotDTO struct {
		Date  flexString `json:"date"`
		Start flexString `json:"heure_debut"`
		End   flexString `json:"heure_fin"`
	}

	participantDTO struct {
		LastName  flexString `json:"nom"`
		FirstName flexString `json:"prenom"`
	}

	// sessionSheetDTO is the answer of GET /fichepresence/{sessionId}.
	sessionSheetDTO struct {
		Title        flexString       `json:"titre"`
		Duration     flexString       `json:"duree"`
		Instructor   flexString       `json:"formateur"`
		Slots        []slotDTO        `json:"creneaux"`
		Participants []participantDTO `json:"participants"`
	}

	// storedSheetDTO is an item of GET /fichepresence/all.
	storedSheetDTO struct {
		ID           flexString `json:"id"`
		SessionID    flexString `json:"id_session"`
		Path         flexString `json:"chemin_fichier"`
		GeneratedAt  flexString `json:"date_generation"`
		SessionTitle flexString `json:"titreSession"`
	}
)

func (dto sessionSheetDTO) record() attendance.SessionRecord {
	rec := attendance.SessionRecord{
		Meta: attendance.SessionMeta{
			Title:         string(dto.Title),
			TotalDuration: string(dto.Duration),
			Instructor:    string(dto.Instructor),
		},
		Slots:        make([]attendance.TimeSlot, 0, len(dto.Slots)),
		Participants: make([]attendance.Participant, 0, len(dto.Participants)),
	}
	for _, s := range dto.Slots {
		rec.Slots = append(rec.Slots, attendance.TimeSlot{Date: string(s.Date), Start: string(s.Start), End: string(s.End)})
	}
	for _, p := range dto.Participants {
		rec.Participants = append(rec.Participants, attendance.Participant{LastName: string(p.LastName), FirstName: string(p.FirstName)})
	}
	return rec
}

func (dto storedSheetDTO) storedSheet() (attendance.StoredSheet, error) {
	id, err := strconv.Atoi(string(dto.ID))
	if err != nil {
		return attendance.StoredSheet{}, errors.Wrapf(err, "parsing id %q", string(dto.ID))
	}
	return attendance.StoredSheet{
		ID:           id,
		SessionID:    string(dto.SessionID),
		Path:         string(dto.Path),
		GeneratedAt:  string(dto.GeneratedAt),
		SessionTitle: string(dto.SessionTitle),
	}, nil
}
