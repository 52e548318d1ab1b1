package gcs

import (
	"testing"

	appconfig "github.com/outstaff/outstaff/internal/config"
)

func TestNew_MissingBucket(t *testing.T) {
	if _, err := New(&appconfig.GCSStorageConfig{}); err == nil {
		t.Error("New() = nil error, want error for missing bucket")
	}
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      appconfig.GCSStorageConfig
		wantErr  bool
		wantOpts int
	}{
		{"default has no options", appconfig.GCSStorageConfig{}, false, 0},
		{"workload identity", appconfig.GCSStorageConfig{AuthMethod: "workload_identity"}, false, 0},
		{"endpoint override", appconfig.GCSStorageConfig{Endpoint: "http://localhost:4443/storage/v1/"}, false, 1},
		{"inferred service account from json", appconfig.GCSStorageConfig{CredentialsJSON: `{"type":"service_account"}`}, false, 1},
		{"inferred service account from file", appconfig.GCSStorageConfig{CredentialsFile: "/etc/gcs.json"}, false, 1},
		{"service account without credentials", appconfig.GCSStorageConfig{AuthMethod: "service_account"}, true, 0},
		{"unsupported method", appconfig.GCSStorageConfig{AuthMethod: "api_key"}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := clientOptions(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("clientOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(opts) != tt.wantOpts {
				t.Errorf("len(opts) = %d, want %d", len(opts), tt.wantOpts)
			}
		})
	}
}
