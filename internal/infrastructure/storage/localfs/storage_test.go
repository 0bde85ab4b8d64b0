package localfs

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(t.TempDir(), "test-secret")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestPutOpenDeleteRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Put(ctx, "user-1/report.txt", "text/plain", bytes.NewBufferString("hello")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	rc, err := s.Open(ctx, "user-1/report.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if string(raw) != "hello" {
		t.Fatalf("unexpected content: %q", raw)
	}

	if err := s.Delete(ctx, "user-1/report.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Open(ctx, "user-1/report.txt"); err == nil {
		t.Fatalf("expected open error after delete")
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	s := newTestStorage(t)
	if err := s.Put(context.Background(), "../escape", "text/plain", bytes.NewBufferString("x")); err == nil {
		t.Fatalf("expected error for traversal key")
	}
	if _, err := s.SignedURL("/etc/passwd", time.Minute); err == nil {
		t.Fatalf("expected error for absolute key")
	}
}

func TestSignedURLVerifies(t *testing.T) {
	s := newTestStorage(t)
	signed, err := s.SignedURL("user-1/report.txt", time.Minute)
	if err != nil {
		t.Fatalf("SignedURL() error = %v", err)
	}

	parsed, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	key := strings.TrimPrefix(parsed.Path, "/v1/files/")
	key, _ = url.PathUnescape(key)
	expires, err := strconv.ParseInt(parsed.Query().Get("expires"), 10, 64)
	if err != nil {
		t.Fatalf("parse expires: %v", err)
	}

	if err := s.Verify(key, expires, parsed.Query().Get("signature")); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if err := s.Verify("user-1/other.txt", expires, parsed.Query().Get("signature")); err == nil {
		t.Fatalf("expected verification failure for different key")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	s := newTestStorage(t)
	expires := time.Now().Add(-time.Minute).Unix()
	sig := s.sign("user-1/report.txt", expires)
	if err := s.Verify("user-1/report.txt", expires, sig); err == nil {
		t.Fatalf("expected expiry error")
	}
}
