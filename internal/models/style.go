package models

const (
	DefaultFontFamily = "Inter"
	DefaultBullet     = "•"
)

// StylePrefs holds per-session rendering preferences
type StylePrefs struct {
	FontFamily string  `json:"font_family,omitempty"`
	Bullet     string  `json:"bullet,omitempty"`
	Template   *string `json:"template,omitempty"`
}

// DefaultStylePrefs returns the preferences used when a session has none
func DefaultStylePrefs() StylePrefs {
	return StylePrefs{
		FontFamily: DefaultFontFamily,
		Bullet:     DefaultBullet,
	}
}

// Merge overlays the non-empty fields of patch onto p
func (p StylePrefs) Merge(patch *StylePrefs) StylePrefs {
	if patch == nil {
		return p
	}
	if patch.FontFamily != "" {
		p.FontFamily = patch.FontFamily
	}
	if patch.Bullet != "" {
		p.Bullet = patch.Bullet
	}
	if patch.Template != nil {
		tpl := *patch.Template
		p.Template = &tpl
	}
	return p
}
