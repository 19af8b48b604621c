package app

import "slices"

type InterviewType string

const (
	InterviewPhoneScreen InterviewType = "phone_screen"
	InterviewTechnical   InterviewType = "technical"
	InterviewBehavioral  InterviewType = "behavioral"
	InterviewFinalRound  InterviewType = "final_round"
	InterviewHRRound     InterviewType = "hr_round"
	InterviewTeamMeet    InterviewType = "team_meet"
)

const defaultInterviewMinutes = 30

var interviewMinutes = map[InterviewType]int{
	InterviewPhoneScreen: 30,
	InterviewTechnical:   60,
	InterviewBehavioral:  45,
	InterviewFinalRound:  60,
	InterviewHRRound:     30,
	InterviewTeamMeet:    30,
}

// DurationMinutes is the fixed length of each interview type. Unknown types last 30 minutes.
func (t InterviewType) DurationMinutes() int {
	if m, ok := interviewMinutes[t]; ok {
		return m
	}
	return defaultInterviewMinutes
}

func (t InterviewType) Known() bool {
	_, ok := interviewMinutes[t]
	return ok
}

// InterviewTypes lists every known type in name order.
func InterviewTypes() []InterviewType {
	out := make([]InterviewType, 0, len(interviewMinutes))
	for t := range interviewMinutes {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
