package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHashtags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"comma separated", "#Yorkie, #DogArt,#PetPortrait", []string{"#Yorkie", "#DogArt", "#PetPortrait"}},
		{"newlines and junk", "#Yorkie\nnot-a-tag\r\n  #DogArt  \n#", []string{"#Yorkie", "#DogArt"}},
		{"empty", "  ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseHashtags(tt.in))
		})
	}
}

func TestStoryParams_Resolve(t *testing.T) {
	p := StoryParams{
		Conflict:       "Squirrel gang's mischief",
		Setting:        "Deep Forest",
		NarrativeStyle: "GenZ fresh style",
		Mood:           "Joyful and playful",
		CustomConflict: "  A runaway tractor ",
		CustomMood:     "   ",
	}
	got := p.Resolve()
	assert.Equal(t, "A runaway tractor", got.Conflict)
	assert.Equal(t, "Deep Forest", got.Setting)
	assert.Equal(t, "GenZ fresh style", got.NarrativeStyle)
	assert.Equal(t, "Joyful and playful", got.Mood, "blank override keeps preset")
}

func TestInstructionValidate(t *testing.T) {
	i := &AnalysisInstruction{Name: "n", SystemPrompt: "s"}
	assert.ErrorIs(t, i.Validate(), ErrInvalidInput)
	i.UserPrompt = "u"
	assert.NoError(t, i.Validate())
}

func TestAnalysisResult_RequireFields(t *testing.T) {
	r := AnalysisResult{Name: "Biscuit", Story: "s"}
	assert.ErrorIs(t, r.RequireFields(), ErrMissingField)
	r.Style = "oil"
	assert.NoError(t, r.RequireFields())
}
