package coordlog

import (
	"strings"
	"testing"
)

func TestValidateAppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg := Config{TenancyID: "t1"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Backend != DefaultBackend {
		t.Fatalf("Backend = %q, want %q", cfg.Backend, DefaultBackend)
	}
	if cfg.Codec != DefaultCodec {
		t.Fatalf("Codec = %q, want %q", cfg.Codec, DefaultCodec)
	}
	if cfg.Address != DefaultAddress {
		t.Fatalf("Address = %q, want %q", cfg.Address, DefaultAddress)
	}
	if cfg.ConnectAttempt != DefaultConnectAttempt {
		t.Fatalf("ConnectAttempt = %v, want %v", cfg.ConnectAttempt, DefaultConnectAttempt)
	}
	if cfg.LogParametersRetryDelay != DefaultLogParametersRetryDelay {
		t.Fatalf("LogParametersRetryDelay = %v, want %v", cfg.LogParametersRetryDelay, DefaultLogParametersRetryDelay)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing tenancy", Config{}, "tenancy id is required"},
		{"tenancy with separator", Config{TenancyID: "a/b"}, "path separators"},
		{"unknown backend", Config{TenancyID: "t1", Backend: "etcd"}, "unknown backend"},
		{"disk without root", Config{TenancyID: "t1", Backend: BackendDisk}, "backend root is required"},
		{"unknown codec", Config{TenancyID: "t1", Codec: "protobuf"}, "unknown codec"},
		{"server with disk backend", Config{TenancyID: "t1", Server: true, Backend: BackendDisk}, "embedded server"},
		{"negative server port", Config{TenancyID: "t1", ServerPort: -1}, "server port"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := tc.cfg
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateServerImpliesMemBackend(t *testing.T) {
	t.Parallel()
	cfg := Config{TenancyID: "t1", Server: true}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Backend != BackendMem {
		t.Fatalf("Backend = %q, want %q", cfg.Backend, BackendMem)
	}
	if cfg.ServerPort != DefaultServerPort {
		t.Fatalf("ServerPort = %d, want %d", cfg.ServerPort, DefaultServerPort)
	}
}
