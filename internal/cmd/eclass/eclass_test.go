package eclass

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	t.Setenv("ECLASS_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("ECLASS_HTTP_PORT", "9095")
	t.Setenv("ECLASS_BRIDGE_URL", "ws://bridge:8080/rpc")
	t.Setenv("ECLASS_ANNOUNCEMENT_CHANNELS", "L1:chan-1,L2:chan-2")
	t.Setenv("ECLASS_AUDIENCE_ROLES", "L1:role-1")
	t.Setenv("ECLASS_UPCOMING_CHANNELS", "L1:week-1")
	fs := flag.NewFlagSet("eclass", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, []string{"-storage", "postgres", "-reminder-lead", "30m", "-scheduler=false"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPPort != 9095 {
		t.Fatalf("http port = %d, want 9095", cfg.HTTPPort)
	}
	if cfg.BridgeURL != "ws://bridge:8080/rpc" {
		t.Fatalf("bridge url = %q", cfg.BridgeURL)
	}
	if cfg.StorageDriver != "postgres" {
		t.Fatalf("storage = %q, want postgres", cfg.StorageDriver)
	}
	if cfg.ReminderLead != 30*time.Minute {
		t.Fatalf("reminder lead = %v, want 30m", cfg.ReminderLead)
	}
	if cfg.SchedulerEnabled {
		t.Fatal("expected scheduler to be disabled by flag")
	}
	if cfg.AnnouncementChannels["L2"] != "chan-2" || len(cfg.AnnouncementChannels) != 2 {
		t.Fatalf("announcement channels = %v", cfg.AnnouncementChannels)
	}
	if cfg.AudienceRoles["L1"] != "role-1" {
		t.Fatalf("audience roles = %v", cfg.AudienceRoles)
	}
	if cfg.UpcomingChannels["L1"] != "week-1" {
		t.Fatalf("upcoming channels = %v", cfg.UpcomingChannels)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	t.Setenv("ECLASS_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	fs := flag.NewFlagSet("eclass", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HealthPort != 8096 || cfg.StorageDriver != "sqlite" || cfg.DBPath != "data/eclass.db" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.HorizonMonths != 2 || cfg.SchedulerInterval != time.Minute || !cfg.SchedulerEnabled {
		t.Fatalf("lifecycle defaults = %+v", cfg)
	}
	if cfg.Locale != "fr" || cfg.Timezone != "Europe/Paris" || cfg.SubscribeEmoji != "✅" {
		t.Fatalf("display defaults = %+v", cfg)
	}
}

func TestParseConfig_LoadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eclass.env")
	writeFile(t, path, "ECLASS_JWT_SECRET=from-dotenv\nECLASS_LOCALE=en\n")
	t.Setenv("ECLASS_ENV_FILE", path)
	t.Setenv("ECLASS_LOCALE", "fr")
	t.Cleanup(func() { _ = os.Unsetenv("ECLASS_JWT_SECRET") })
	fs := flag.NewFlagSet("eclass", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.JWTSecret != "from-dotenv" {
		t.Fatalf("jwt secret = %q, want from-dotenv", cfg.JWTSecret)
	}
	if cfg.Locale != "fr" {
		t.Fatalf("locale = %q, want process env to win", cfg.Locale)
	}
}
