package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slotInput struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Start string `json:"start" validate:"required,hhmm"`
	End   string `json:"end" validate:"required,hhmm"`
}

func TestInitValidators(t *testing.T) {
	translator := NewTranslator()
	validate := NewValidate(translator)

	tests := []struct {
		name    string
		input   slotInput
		wantErr map[string]string
	}{
		{name: "valid", input: slotInput{Date: "2024-05-03", Start: "09:00", End: "12:30"}},
		{name: "end before start is allowed", input: slotInput{Date: "2024-05-03", Start: "18:00", End: "08:00"}},
		{
			name:  "all blank",
			input: slotInput{},
			wantErr: map[string]string{
				"date":  "ce champ est obligatoire",
				"start": "ce champ est obligatoire",
				"end":   "ce champ est obligatoire",
			},
		},
		{
			name:    "bad time",
			input:   slotInput{Date: "2024-05-03", Start: "9h", End: "24:00"},
			wantErr: map[string]string{"start": "start doit être une heure au format HH:MM", "end": "end doit être une heure au format HH:MM"},
		},
		{
			name:    "bad date",
			input:   slotInput{Date: "03/05/2024", Start: "09:00", End: "10:00"},
			wantErr: map[string]string{"date": "date doit être une date au format AAAA-MM-JJ"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			assert.Equal(t, tt.wantErr, TranslateValidationErrors(vErrs, translator))
		})
	}
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Jean Dupont", CleanString("  Jean Dupont \t"))
	assert.Equal(t, "jean@test.fr", CleanString(" JEAN@test.fr ", true))
}
