package cache

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	if p.MaxSize != 500 {
		t.Errorf("MaxSize = %d, want 500", p.MaxSize)
	}
	if p.TTL != 5*time.Minute {
		t.Errorf("TTL = %v, want 5m", p.TTL)
	}
	if !p.ShouldCache() {
		t.Error("DefaultPolicy should cache")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("DefaultPolicy().Validate() = %v", err)
	}
}

func TestNoCachePolicy(t *testing.T) {
	p := NoCachePolicy()
	if p.ShouldCache() {
		t.Error("NoCachePolicy should not cache")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("NoCachePolicy().Validate() = %v", err)
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"valid", Policy{MaxSize: 1, TTL: time.Second}, false},
		{"zero ttl", Policy{MaxSize: 1}, false},
		{"zero size", Policy{TTL: time.Second}, true},
		{"negative ttl", Policy{MaxSize: 1, TTL: -1}, true},
		{"negative sweep", Policy{MaxSize: 1, SweepInterval: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
