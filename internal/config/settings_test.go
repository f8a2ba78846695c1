package config

import (
	"errors"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestApplyKeepsRedactedSecrets(t *testing.T) {
	current := DefaultSettings()
	current.Token = "real-token"
	current.WebPassword = "s3cret"

	updated := current.Apply(SettingsPatch{
		Token:       ptr(RedactedToken),
		WebPassword: ptr(RedactedToken),
		MinTimeout:  ptr(5),
	})
	if updated.Token != "real-token" {
		t.Fatalf("expected token kept, got %q", updated.Token)
	}
	if updated.WebPassword != "s3cret" {
		t.Fatalf("expected password kept, got %q", updated.WebPassword)
	}
	if updated.MinTimeout != 5 {
		t.Fatalf("expected min 5, got %d", updated.MinTimeout)
	}
	if updated.MaxTimeout != current.MaxTimeout {
		t.Fatalf("expected max untouched, got %d", updated.MaxTimeout)
	}
}

func TestApplyReplacesToken(t *testing.T) {
	current := DefaultSettings()
	current.Token = "old"
	updated := current.Apply(SettingsPatch{Token: ptr("new")})
	if updated.Token != "new" {
		t.Fatalf("expected new token, got %q", updated.Token)
	}
	if current.Token != "old" {
		t.Fatalf("apply mutated receiver")
	}
}

func TestApplyCopiesGuildList(t *testing.T) {
	guilds := []string{"g1"}
	updated := DefaultSettings().Apply(SettingsPatch{EnabledGuilds: &guilds})
	guilds[0] = "changed"
	if updated.EnabledGuilds[0] != "g1" {
		t.Fatalf("guild list aliased caller slice")
	}
}

func TestRedacted(t *testing.T) {
	s := DefaultSettings()
	s.Token = "abc"
	r := s.Redacted()
	if r.Token != RedactedToken || r.WebPassword != RedactedToken {
		t.Fatalf("expected secrets redacted, got %+v", r)
	}
	if s.Token != "abc" {
		t.Fatalf("redaction mutated receiver")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Settings) {}},
		{name: "equal bounds", mutate: func(s *Settings) { s.MinTimeout, s.MaxTimeout = 10, 10 }},
		{name: "zero cooldown", mutate: func(s *Settings) { s.CooldownSeconds = 0 }},
		{name: "zero min", mutate: func(s *Settings) { s.MinTimeout = 0 }, wantErr: true},
		{name: "max below min", mutate: func(s *Settings) { s.MinTimeout, s.MaxTimeout = 20, 10 }, wantErr: true},
		{name: "max above discord limit", mutate: func(s *Settings) { s.MaxTimeout = MaxTimeoutSeconds + 1 }, wantErr: true},
		{name: "negative cooldown", mutate: func(s *Settings) { s.CooldownSeconds = -1 }, wantErr: true},
		{name: "empty prefix", mutate: func(s *Settings) { s.Prefix = "" }, wantErr: true},
		{name: "bad port", mutate: func(s *Settings) { s.WebPort = 70000 }, wantErr: true},
		{name: "empty password", mutate: func(s *Settings) { s.WebPassword = "" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("expected ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestGuildEnabled(t *testing.T) {
	s := DefaultSettings()
	if !s.GuildEnabled("any") {
		t.Fatalf("empty list should enable every guild")
	}
	s.EnabledGuilds = []string{"g1"}
	if !s.GuildEnabled("g1") || s.GuildEnabled("g2") {
		t.Fatalf("unexpected guild filter result")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", t.TempDir()+"/missing.yaml")
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("MIN_TIMEOUT", "3")
	t.Setenv("ENABLED_GUILDS", "g1, g2,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Seed.Token != "tok" || cfg.Seed.MinTimeout != 3 {
		t.Fatalf("env not applied: %+v", cfg.Seed)
	}
	if len(cfg.Seed.EnabledGuilds) != 2 || cfg.Seed.EnabledGuilds[1] != "g2" {
		t.Fatalf("unexpected guilds: %v", cfg.Seed.EnabledGuilds)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.LogLevel)
	}
	if cfg.Seed.Prefix != "!eta" {
		t.Fatalf("expected default prefix, got %q", cfg.Seed.Prefix)
	}
}

func TestPatchFields(t *testing.T) {
	patch := SettingsPatch{Prefix: ptr("!x"), CooldownSeconds: ptr(5), EnabledGuilds: &[]string{}}
	fields := patch.Fields()
	if len(fields) != 3 || fields[0] != "prefix" || fields[1] != "cooldownSeconds" || fields[2] != "enabledGuilds" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if len((SettingsPatch{}).Fields()) != 0 {
		t.Fatalf("empty patch reported fields")
	}
}
