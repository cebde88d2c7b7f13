package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GIN_MODE", "test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.MaxUploadBytes != 20<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 20<<20)
	}
	if cfg.SummaryBackend != BackendGemini {
		t.Errorf("SummaryBackend = %q, want %q", cfg.SummaryBackend, BackendGemini)
	}
	if cfg.UploadTransport != TransportLocal {
		t.Errorf("UploadTransport = %q, want %q", cfg.UploadTransport, TransportLocal)
	}
	if cfg.CompensateUploads {
		t.Error("CompensateUploads should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GIN_MODE", "test")
	t.Setenv("PORT", "9999")
	t.Setenv("SUMMARY_BACKEND", "OpenAI")
	t.Setenv("CORS_ORIGIN", "http://a.test,http://b.test")
	t.Setenv("PIPELINE_COMPENSATE_UPLOADS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Port)
	}
	if cfg.SummaryBackend != BackendOpenAI {
		t.Errorf("SummaryBackend = %q, want normalized %q", cfg.SummaryBackend, BackendOpenAI)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if !cfg.CompensateUploads {
		t.Error("CompensateUploads should be true")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			GinMode:         "debug",
			JWTSecret:       defaultJWTSecret,
			SummaryBackend:  BackendGemini,
			UploadTransport: TransportLocal,
			MaxUploadBytes:  20 << 20,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "debug defaults are fine",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.SummaryBackend = "llama" },
			wantErr: "SUMMARY_BACKEND",
		},
		{
			name:    "http transport needs URL",
			mutate:  func(c *Config) { c.UploadTransport = TransportHTTP },
			wantErr: "UPLOAD_SERVICE_URL",
		},
		{
			name:    "non-positive upload limit",
			mutate:  func(c *Config) { c.MaxUploadBytes = 0 },
			wantErr: "MAX_UPLOAD_BYTES",
		},
		{
			name:    "release with default secret",
			mutate:  func(c *Config) { c.GinMode = "release" },
			wantErr: "JWT_SECRET",
		},
		{
			name: "release without backend key",
			mutate: func(c *Config) {
				c.GinMode = "release"
				c.JWTSecret = "real-secret"
			},
			wantErr: "API key",
		},
		{
			name: "release fully configured",
			mutate: func(c *Config) {
				c.GinMode = "release"
				c.JWTSecret = "real-secret"
				c.GeminiAPIKey = "key"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestFileURLPrefixes(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "local transport serves from /files/",
			cfg:  Config{UploadTransport: TransportLocal, PublicBaseURL: "https://api.test/"},
			want: []string{"https://api.test/files/"},
		},
		{
			name: "http transport defaults to the service origin",
			cfg:  Config{UploadTransport: TransportHTTP, UploadServiceURL: "https://uploads.test/api/upload"},
			want: []string{"https://uploads.test/"},
		},
		{
			name: "explicit prefixes win",
			cfg: Config{
				UploadTransport:       TransportHTTP,
				UploadServiceURL:      "https://uploads.test/api/upload",
				UploadFileURLPrefixes: []string{"https://cdn.test/f/"},
			},
			want: []string{"https://cdn.test/f/"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.FileURLPrefixes()
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("FileURLPrefixes() = %v, want %v", got, tt.want)
			}
		})
	}
}
