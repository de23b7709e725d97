package session

import (
	"github.com/benvon/sculptor/internal/models"
)

// Field names a mutable session attribute
type Field string

const (
	FieldTitle          Field = "title"
	FieldMessages       Field = "messages"
	FieldJobDescription Field = "jobDescription"
	FieldResumeText     Field = "resumeText"
	FieldFinalResume    Field = "finalResume"
	FieldCareerGoalData Field = "careerGoalData"
	FieldStylePrefs     Field = "stylePrefs"
)

// Patch is a partial session update. Nil fields are left untouched.
// StylePrefs merges over the existing preferences instead of replacing them.
type Patch struct {
	Title            *string
	Messages         *[]models.Message
	JobDescription   *string
	ResumeText       *string
	FinalResume      *string
	ClearFinalResume bool
	CareerGoalData   *models.CareerGoal
	StylePrefs       *models.StylePrefs
}

// Fields lists the attributes the patch changes
func (p Patch) Fields() []Field {
	var fields []Field
	if p.Title != nil {
		fields = append(fields, FieldTitle)
	}
	if p.Messages != nil {
		fields = append(fields, FieldMessages)
	}
	if p.JobDescription != nil {
		fields = append(fields, FieldJobDescription)
	}
	if p.ResumeText != nil {
		fields = append(fields, FieldResumeText)
	}
	if p.FinalResume != nil || p.ClearFinalResume {
		fields = append(fields, FieldFinalResume)
	}
	if p.CareerGoalData != nil {
		fields = append(fields, FieldCareerGoalData)
	}
	if p.StylePrefs != nil {
		fields = append(fields, FieldStylePrefs)
	}
	return fields
}

func (p Patch) apply(s *models.ChatSession) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Messages != nil {
		msgs := make([]models.Message, len(*p.Messages))
		copy(msgs, *p.Messages)
		s.Messages = msgs
	}
	if p.JobDescription != nil {
		s.JobDescription = models.StringPtr(*p.JobDescription)
	}
	if p.ResumeText != nil {
		s.ResumeText = models.StringPtr(*p.ResumeText)
	}
	switch {
	case p.ClearFinalResume:
		s.FinalResume = nil
	case p.FinalResume != nil:
		s.FinalResume = models.StringPtr(*p.FinalResume)
	}
	if p.CareerGoalData != nil {
		goal := p.CareerGoalData.Clone()
		s.CareerGoalData = &goal
	}
	if p.StylePrefs != nil {
		var base models.StylePrefs
		if s.StylePrefs != nil {
			base = *s.StylePrefs
		}
		merged := base.Merge(p.StylePrefs)
		s.StylePrefs = &merged
	}
}

// remoteColumn maps one in-memory field onto its column in the remote sessions table
type remoteColumn struct {
	field  Field
	column string
	value  func(s *models.ChatSession) any
}

// remoteColumns is the complete set of fields ever transmitted on update.
// resumeText and stylePrefs are deliberately absent: they live only in memory.
var remoteColumns = []remoteColumn{
	{FieldTitle, "title", func(s *models.ChatSession) any { return s.Title }},
	{FieldMessages, "messages", func(s *models.ChatSession) any { return s.Messages }},
	{FieldFinalResume, "final_resume", func(s *models.ChatSession) any { return s.FinalResume }},
	{FieldCareerGoalData, "career_goal_data", func(s *models.ChatSession) any { return s.CareerGoalData }},
	{FieldJobDescription, "job_description", func(s *models.ChatSession) any { return s.JobDescription }},
}

// RemoteColumn returns the remote column for field, if the field is synced at all
func RemoteColumn(field Field) (string, bool) {
	for _, rc := range remoteColumns {
		if rc.field == field {
			return rc.column, true
		}
	}
	return "", false
}

// RemotePayload builds the column/value map for the whitelisted subset of fields
// taken from snapshot. It returns nil when none of the fields are synced.
func RemotePayload(snapshot *models.ChatSession, fields []Field) map[string]any {
	var payload map[string]any
	for _, f := range fields {
		for _, rc := range remoteColumns {
			if rc.field != f {
				continue
			}
			if payload == nil {
				payload = make(map[string]any, len(fields))
			}
			payload[rc.column] = rc.value(snapshot)
		}
	}
	return payload
}
