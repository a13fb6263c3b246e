package httpclient

import (
	"net/http"
	"testing"
	"time"
)

func TestNewAppliesDefaultTimeout(t *testing.T) {
	c := New()
	if c.Timeout != DefaultTotalTimeout {
		t.Fatalf("Timeout = %v, want %v", c.Timeout, DefaultTotalTimeout)
	}
	transport, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Transport is not *http.Transport")
	}
	if transport.MaxIdleConnsPerHost == 0 {
		t.Fatalf("expected idle connection reuse configured")
	}
}

func TestWithTimeoutOverridesTotal(t *testing.T) {
	c := WithTimeout(30 * time.Second)
	if c.Timeout != 30*time.Second {
		t.Fatalf("Timeout = %v, want 30s", c.Timeout)
	}
}
