package config

import "testing"

func validBase() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080, BaseURL: "https://vj.example.com"},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "voicejournal"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		Telnyx: TelnyxConfig{
			APIKey:       "key",
			PhoneNumber:  "+15550001111",
			ConnectionID: "conn-1",
		},
		Scheduler: SchedulerConfig{BaseURL: "http://scheduler:9000", InternalToken: "tok"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Scheduler.Group == "" {
		t.Fatalf("expected scheduler group default")
	}
	if c.Scheduler.TargetURL != "https://vj.example.com/internal/dispatch" {
		t.Fatalf("unexpected target url %q", c.Scheduler.TargetURL)
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "voicejournal"
	c.Auth.JWTAudience = "voicejournal-api"
	c.Telnyx.PublicKey = "pubkey"
	c.DB.SSLMode = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_ProductionRejectsSignatureBypass(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "voicejournal"
	c.Auth.JWTAudience = "voicejournal-api"
	c.DB.SSLMode = "require"
	c.Telnyx.PublicKey = "pubkey"
	c.Telnyx.SkipVerify = true
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for signature bypass in production")
	}
}

func TestValidate_RequiresAProvider(t *testing.T) {
	c := validBase()
	c.Telnyx = TelnyxConfig{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when no provider configured")
	}
}
