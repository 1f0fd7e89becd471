package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("PORT", "")
	t.Setenv("SERVICE_WORKER_URL", "")
	t.Setenv("VAPID_PUBLIC_KEY", "")
	t.Setenv("VAPID_PRIVATE_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Port)
	}
	if cfg.StoreBackend != BackendRedis {
		t.Fatalf("storeBackend = %q, want redis", cfg.StoreBackend)
	}
	if cfg.ServiceWorkerURL != "/sw.js" {
		t.Fatalf("serviceWorkerURL = %q, want /sw.js", cfg.ServiceWorkerURL)
	}
	if cfg.IsProd() {
		t.Fatalf("expected development env by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("SESSION_SECRET", "s3cr3t")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PUSH_TTL", "120")
	t.Setenv("ANALYTICS_ENABLED", "false")
	t.Setenv("TWITTER_APP_KEY", "k")
	t.Setenv("TWITTER_APP_SECRET", "s")
	t.Setenv("TWITTER_ACCESS_TOKEN", "t")
	t.Setenv("TWITTER_ACCESS_SECRET", "ts")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.IsProd() {
		t.Fatalf("env = %q, want production", cfg.Env)
	}
	if cfg.RedisDB != 3 {
		t.Fatalf("redisDB = %d, want 3", cfg.RedisDB)
	}
	if cfg.PushTTL != 120 {
		t.Fatalf("pushTTL = %d, want 120", cfg.PushTTL)
	}
	if cfg.AnalyticsEnabled {
		t.Fatalf("analyticsEnabled = true, want false")
	}
	if !cfg.Twitter.Enabled() {
		t.Fatalf("expected twitter credentials to be enabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"redis ok", Config{StoreBackend: BackendRedis, Env: EnvDevelopment}, false},
		{"postgres without url", Config{StoreBackend: BackendPostgres, Env: EnvDevelopment}, true},
		{"postgres with url", Config{StoreBackend: BackendPostgres, Env: EnvDevelopment, DatabaseURL: "postgres://x"}, false},
		{"unknown backend", Config{StoreBackend: "mongo", Env: EnvDevelopment}, true},
		{"unknown env", Config{StoreBackend: BackendRedis, Env: "staging"}, true},
		{"prod default secret", Config{StoreBackend: BackendRedis, Env: EnvProduction, SessionSecret: "secret-key-change-in-production"}, true},
		{"half vapid pair", Config{StoreBackend: BackendRedis, Env: EnvDevelopment, VAPIDPublicKey: "pub"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
