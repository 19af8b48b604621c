package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"interview-scheduler/internal/app"
)

func TestInterviewTypeDurationMinutes(t *testing.T) {
	tests := []struct {
		typ   app.InterviewType
		want  int
		known bool
	}{
		{app.InterviewPhoneScreen, 30, true},
		{app.InterviewTechnical, 60, true},
		{app.InterviewBehavioral, 45, true},
		{app.InterviewFinalRound, 60, true},
		{app.InterviewHRRound, 30, true},
		{app.InterviewTeamMeet, 30, true},
		{app.InterviewType("coffee_chat"), 30, false},
		{app.InterviewType(""), 30, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.DurationMinutes())
			assert.Equal(t, tt.known, tt.typ.Known())
		})
	}
}

func TestInterviewType_KnownTypesAreExactlyTheDurationTable(t *testing.T) {
	known := []app.InterviewType{
		app.InterviewPhoneScreen, app.InterviewTechnical, app.InterviewBehavioral,
		app.InterviewFinalRound, app.InterviewHRRound, app.InterviewTeamMeet,
	}
	assert.ElementsMatch(t, known, app.InterviewTypes())
	for _, typ := range app.InterviewTypes() {
		assert.True(t, typ.Known(), "%s", typ)
		assert.Positive(t, typ.DurationMinutes(), "%s", typ)
	}
}
