package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionType is the kind of document a chat session works towards
type SessionType string

const (
	SessionTypeResume            SessionType = "resume"
	SessionTypeCoverLetter       SessionType = "cover-letter"
	SessionTypeResignationLetter SessionType = "resignation-letter"
	SessionTypeCareerCopilot     SessionType = "career-copilot"
)

// SessionTypes lists every supported session type in display order
var SessionTypes = []SessionType{
	SessionTypeResume,
	SessionTypeCoverLetter,
	SessionTypeResignationLetter,
	SessionTypeCareerCopilot,
}

// Valid reports whether t is one of the supported session types
func (t SessionType) Valid() bool {
	for _, known := range SessionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns a human readable name used for default titles
func (t SessionType) Label() string {
	switch t {
	case SessionTypeResume:
		return "Resume"
	case SessionTypeCoverLetter:
		return "Cover Letter"
	case SessionTypeResignationLetter:
		return "Resignation Letter"
	case SessionTypeCareerCopilot:
		return "Career Copilot"
	default:
		return "Session"
	}
}

// ChatSession is one conversational workspace scoped to a document type
type ChatSession struct {
	ID             uuid.UUID   `json:"id"`
	UserID         uuid.UUID   `json:"user_id"`
	Title          string      `json:"title"`
	Type           SessionType `json:"type"`
	Messages       []Message   `json:"messages"`
	JobDescription *string     `json:"job_description,omitempty"`
	ResumeText     *string     `json:"resume_text,omitempty"`
	FinalResume    *string     `json:"final_resume"`
	CareerGoalData *CareerGoal `json:"career_goal_data,omitempty"`
	StylePrefs     *StylePrefs `json:"style_prefs,omitempty"`
	LastUpdated    time.Time   `json:"last_updated"`
}

// InPreview reports whether a finished document is available for display
func (s *ChatSession) InPreview() bool {
	return s.FinalResume != nil
}

// EffectiveStyle returns the session style with defaults applied
func (s *ChatSession) EffectiveStyle() StylePrefs {
	return DefaultStylePrefs().Merge(s.StylePrefs)
}

// Clone returns a deep copy so callers can never mutate store-owned state
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	c := *s
	if s.Messages != nil {
		c.Messages = make([]Message, len(s.Messages))
		copy(c.Messages, s.Messages)
	}
	c.JobDescription = cloneString(s.JobDescription)
	c.ResumeText = cloneString(s.ResumeText)
	c.FinalResume = cloneString(s.FinalResume)
	if s.CareerGoalData != nil {
		goal := s.CareerGoalData.Clone()
		c.CareerGoalData = &goal
	}
	if s.StylePrefs != nil {
		prefs := *s.StylePrefs
		prefs.Template = cloneString(s.StylePrefs.Template)
		c.StylePrefs = &prefs
	}
	return &c
}

// InitialContext carries optional job target details supplied at session creation
type InitialContext struct {
	JobTitle       string `json:"job_title,omitempty"`
	Company        string `json:"company,omitempty"`
	JobDescription string `json:"job_description,omitempty"`
	ResumeText     string `json:"resume_text,omitempty"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
