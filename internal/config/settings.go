package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
)

// RedactedToken replaces secrets whenever settings leave the process.
const RedactedToken = "***hidden***"

// MaxTimeoutSeconds is the longest timeout Discord accepts (28 days).
const MaxTimeoutSeconds = 28 * 24 * 60 * 60

var ErrInvalid = errors.New("invalid settings")

var validate = validator.New()

// Settings is the persisted moderation configuration document.
type Settings struct {
	Token           string   `json:"token" yaml:"discord_token"`
	TargetRoleID    string   `json:"targetRoleId" yaml:"target_role_id"`
	Prefix          string   `json:"prefix" yaml:"prefix" validate:"required"`
	MinTimeout      int      `json:"minTimeout" yaml:"min_timeout" validate:"gt=0"`
	MaxTimeout      int      `json:"maxTimeout" yaml:"max_timeout" validate:"gtefield=MinTimeout,max=2419200"`
	CooldownSeconds int      `json:"cooldownSeconds" yaml:"cooldown_seconds" validate:"gte=0"`
	WebPort         int      `json:"webPort" yaml:"web_port" validate:"min=1,max=65535"`
	WebPassword     string   `json:"webPassword" yaml:"web_password" validate:"required"`
	EnabledGuilds   []string `json:"enabledGuilds" yaml:"enabled_guilds"`
}

// SettingsPatch lists every field an operator may change remotely. Fields
// left nil keep their current value.
type SettingsPatch struct {
	Token           *string   `json:"token"`
	TargetRoleID    *string   `json:"targetRoleId"`
	Prefix          *string   `json:"prefix"`
	MinTimeout      *int      `json:"minTimeout"`
	MaxTimeout      *int      `json:"maxTimeout"`
	CooldownSeconds *int      `json:"cooldownSeconds"`
	WebPort         *int      `json:"webPort"`
	WebPassword     *string   `json:"webPassword"`
	EnabledGuilds   *[]string `json:"enabledGuilds"`
}

func DefaultSettings() Settings {
	return Settings{
		Token:           "",
		TargetRoleID:    "",
		Prefix:          "!eta",
		MinTimeout:      10,
		MaxTimeout:      90,
		CooldownSeconds: 60,
		WebPort:         3000,
		WebPassword:     "admin123",
		EnabledGuilds:   []string{},
	}
}

func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (s Settings) Clone() Settings {
	out := s
	out.EnabledGuilds = slices.Clone(s.EnabledGuilds)
	if out.EnabledGuilds == nil {
		out.EnabledGuilds = []string{}
	}
	return out
}

// Redacted returns a copy safe to hand to HTTP clients.
func (s Settings) Redacted() Settings {
	out := s.Clone()
	out.Token = RedactedToken
	out.WebPassword = RedactedToken
	return out
}

// Apply merges p over s. A secret submitted as RedactedToken keeps the
// stored value, so a redacted document can be posted back unchanged.
func (s Settings) Apply(p SettingsPatch) Settings {
	out := s.Clone()
	if p.Token != nil && *p.Token != RedactedToken {
		out.Token = *p.Token
	}
	if p.TargetRoleID != nil {
		out.TargetRoleID = *p.TargetRoleID
	}
	if p.Prefix != nil {
		out.Prefix = *p.Prefix
	}
	if p.MinTimeout != nil {
		out.MinTimeout = *p.MinTimeout
	}
	if p.MaxTimeout != nil {
		out.MaxTimeout = *p.MaxTimeout
	}
	if p.CooldownSeconds != nil {
		out.CooldownSeconds = *p.CooldownSeconds
	}
	if p.WebPort != nil {
		out.WebPort = *p.WebPort
	}
	if p.WebPassword != nil && *p.WebPassword != RedactedToken {
		out.WebPassword = *p.WebPassword
	}
	if p.EnabledGuilds != nil {
		out.EnabledGuilds = slices.Clone(*p.EnabledGuilds)
		if out.EnabledGuilds == nil {
			out.EnabledGuilds = []string{}
		}
	}
	return out
}

// Fields lists the json names of the fields set in p.
func (p SettingsPatch) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(p.Token != nil, "token")
	add(p.TargetRoleID != nil, "targetRoleId")
	add(p.Prefix != nil, "prefix")
	add(p.MinTimeout != nil, "minTimeout")
	add(p.MaxTimeout != nil, "maxTimeout")
	add(p.CooldownSeconds != nil, "cooldownSeconds")
	add(p.WebPort != nil, "webPort")
	add(p.WebPassword != nil, "webPassword")
	add(p.EnabledGuilds != nil, "enabledGuilds")
	return fields
}

// GuildEnabled reports whether commands from guildID are handled. An empty
// list enables every guild.
func (s Settings) GuildEnabled(guildID string) bool {
	if len(s.EnabledGuilds) == 0 {
		return true
	}
	return slices.Contains(s.EnabledGuilds, guildID)
}
