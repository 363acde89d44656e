package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TIMEZONE", "")
	t.Setenv("COUNTRY_PREFIX", "")
	t.Setenv("NOTIFY_PROVIDER", "")
	t.Setenv("NOTIFY_SEND_DELAY_MS", "")

	cfg := Load()
	if cfg.Timezone != "Europe/Istanbul" {
		t.Fatalf("unexpected timezone default %q", cfg.Timezone)
	}
	if cfg.CountryPrefix != "90" {
		t.Fatalf("unexpected country prefix default %q", cfg.CountryPrefix)
	}
	if cfg.NotifyProvider != "mock" {
		t.Fatalf("unexpected notify provider default %q", cfg.NotifyProvider)
	}
	if cfg.NotifySendDelayMillis != 1000 {
		t.Fatalf("unexpected notify delay default %d", cfg.NotifySendDelayMillis)
	}
}

func TestLoadRejectsBadNotifyDelay(t *testing.T) {
	t.Setenv("NOTIFY_SEND_DELAY_MS", "-50")

	cfg := Load()
	if cfg.NotifySendDelayMillis != 1000 {
		t.Fatalf("expected fallback delay 1000, got %d", cfg.NotifySendDelayMillis)
	}
}
