package models

import (
	"strings"

	"github.com/google/uuid"
)

// UserProfile is the singleton profile of an authenticated user
type UserProfile struct {
	UserID            uuid.UUID `json:"user_id"`
	Name              string    `json:"name"`
	Title             string    `json:"title"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Location          string    `json:"location"`
	LinkedIn          string    `json:"linkedin"`
	Portfolio         string    `json:"portfolio"`
	BaseResumeText    string    `json:"base_resume_text"`
	DailyAvailability int       `json:"daily_availability" validate:"gte=0,lte=24"`
	VoiceID           string    `json:"voice_id"`
	AvatarURL         string    `json:"avatar_url"`
}

// ContactBlock renders the structured contact section used in document prompts
func (p UserProfile) ContactBlock() string {
	lines := []struct{ label, value string }{
		{"Name", p.Name},
		{"Title", p.Title},
		{"Email", p.Email},
		{"Phone", p.Phone},
		{"Location", p.Location},
		{"LinkedIn", p.LinkedIn},
		{"Portfolio", p.Portfolio},
	}
	var b strings.Builder
	for _, l := range lines {
		if l.value == "" {
			continue
		}
		b.WriteString(l.label)
		b.WriteString(": ")
		b.WriteString(l.value)
		b.WriteByte('\n')
	}
	return b.String()
}

// ProfilePatch is a partial profile update; nil fields are left untouched
type ProfilePatch struct {
	Name              *string `json:"name,omitempty"`
	Title             *string `json:"title,omitempty"`
	Email             *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone             *string `json:"phone,omitempty"`
	Location          *string `json:"location,omitempty"`
	LinkedIn          *string `json:"linkedin,omitempty"`
	Portfolio         *string `json:"portfolio,omitempty"`
	BaseResumeText    *string `json:"base_resume_text,omitempty"`
	DailyAvailability *int    `json:"daily_availability,omitempty" validate:"omitempty,gte=0,lte=24"`
	VoiceID           *string `json:"voice_id,omitempty"`
	AvatarURL         *string `json:"avatar_url,omitempty"`
}

// Apply merges the patch into p
func (patch ProfilePatch) Apply(p *UserProfile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Name, patch.Name)
	set(&p.Title, patch.Title)
	set(&p.Email, patch.Email)
	set(&p.Phone, patch.Phone)
	set(&p.Location, patch.Location)
	set(&p.LinkedIn, patch.LinkedIn)
	set(&p.Portfolio, patch.Portfolio)
	set(&p.BaseResumeText, patch.BaseResumeText)
	set(&p.VoiceID, patch.VoiceID)
	set(&p.AvatarURL, patch.AvatarURL)
	if patch.DailyAvailability != nil {
		p.DailyAvailability = *patch.DailyAvailability
	}
}

// Overlay returns base with every non-empty field of remote taking precedence
func Overlay(base, remote UserProfile) UserProfile {
	pick := func(a, b string) string {
		if b != "" {
			return b
		}
		return a
	}
	out := base
	out.Name = pick(base.Name, remote.Name)
	out.Title = pick(base.Title, remote.Title)
	out.Email = pick(base.Email, remote.Email)
	out.Phone = pick(base.Phone, remote.Phone)
	out.Location = pick(base.Location, remote.Location)
	out.LinkedIn = pick(base.LinkedIn, remote.LinkedIn)
	out.Portfolio = pick(base.Portfolio, remote.Portfolio)
	out.BaseResumeText = pick(base.BaseResumeText, remote.BaseResumeText)
	out.VoiceID = pick(base.VoiceID, remote.VoiceID)
	out.AvatarURL = pick(base.AvatarURL, remote.AvatarURL)
	if remote.DailyAvailability > 0 {
		out.DailyAvailability = remote.DailyAvailability
	}
	return out
}
