package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EVENT_MAX_RETRIES", "")
	cfg := Load()
	if cfg.EventExchange != "domain.events" || cfg.EventMaxRetries != 5 {
		t.Errorf("unexpected event defaults: %s %d", cfg.EventExchange, cfg.EventMaxRetries)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.ShutdownTimeout)
	}
}

func TestLoadOverridesAndBadValues(t *testing.T) {
	t.Setenv("EVENT_RETRY_DELAY", "30s")
	t.Setenv("EVENT_MAX_RETRIES", "many")
	t.Setenv("MAIL_SEND_ENABLED", "false")
	cfg := Load()
	if cfg.EventRetryDelay != 30*time.Second {
		t.Errorf("retry delay = %v", cfg.EventRetryDelay)
	}
	if cfg.EventMaxRetries != 5 {
		t.Errorf("bad int should fall back to default, got %d", cfg.EventMaxRetries)
	}
	if cfg.MailSendEnabled {
		t.Error("MAIL_SEND_ENABLED=false ignored")
	}
}

func TestPostgresDSN(t *testing.T) {
	c := &Config{DBUser: "app", DBPassword: "p@ss word", DBHost: "db", DBPort: "5432", DBName: "billing", DBSSLMode: "disable"}
	want := "postgres://app:p%40ss%20word@db:5432/billing?sslmode=disable"
	if got := c.PostgresDSN(); got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
	c.DatabaseURL = "postgres://override"
	if got := c.PostgresDSN(); got != "postgres://override" {
		t.Errorf("DATABASE_URL not preferred: %q", got)
	}
}

func TestSplitLists(t *testing.T) {
	c := &Config{CORSAllowedOrigins: " http://a.test, ,http://b.test ", ElasticsearchAddrs: ""}
	if got := c.CORSOrigins(); !reflect.DeepEqual(got, []string{"http://a.test", "http://b.test"}) {
		t.Errorf("origins = %v", got)
	}
	if got := c.ESAddrs(); len(got) != 0 {
		t.Errorf("empty addrs should be empty, got %v", got)
	}
}
