package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatusReportsEachCheck(t *testing.T) {
	svc := NewService(map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
		"skipped":  nil,
	})

	ok, checks := svc.Status(context.Background())
	if ok {
		t.Fatalf("expected unhealthy status")
	}
	if checks["database"] != "ok" {
		t.Fatalf("expected database ok, got %q", checks["database"])
	}
	if checks["redis"] != "connection refused" {
		t.Fatalf("unexpected redis status %q", checks["redis"])
	}
	if _, present := checks["skipped"]; present {
		t.Fatalf("nil pinger should be skipped")
	}
}

func TestStatusWithoutChecksIsHealthy(t *testing.T) {
	ok, checks := NewService(nil).Status(context.Background())
	if !ok || len(checks) != 0 {
		t.Fatalf("expected healthy empty status, got %v %v", ok, checks)
	}
}
