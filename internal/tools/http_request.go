package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/shield"
)

// MaxHTTPRequestOutputBytes caps the rendered response, matching
// original_source's tool_http_request.c MAX_OUTPUT.
const MaxHTTPRequestOutputBytes = 8192

const httpRequestTimeout = 15 * time.Second

// NewHTTPRequest builds an http_request tool. Args is "<GET|POST|HEAD>
// <url> [body]"; the URL is Shield-validated (injection grammar plus SSRF
// hostname check) before any connection is opened.
func NewHTTPRequest(client *http.Client) func(args []byte, r *region.Region) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	return func(args []byte, r *region.Region) ([]byte, error) {
		input := strings.TrimSpace(string(args))
		if input == "" {
			return writeString(r, "Usage: <GET|POST|HEAD> <url> [body]")
		}

		fields := strings.SplitN(input, " ", 3)
		method := strings.ToUpper(fields[0])
		if len(fields) < 2 || fields[1] == "" {
			return writeString(r, "Error: no URL provided")
		}
		url := fields[1]
		body := ""
		if len(fields) == 3 {
			body = fields[2]
		}

		if shield.DetectInputInjection([]byte(url)) {
			return writeString(r, "Error: URL rejected by Shield")
		}
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return writeString(r, "Error: URL must start with http:// or https://")
		}
		if err := shield.ValidateURL(url); err != nil {
			return writeErrorf(r, "URL rejected: %v", err)
		}

		switch method {
		case "GET", "POST", "HEAD":
		default:
			return writeString(r, "Error: method must be GET, POST, or HEAD")
		}

		ctx, cancel := context.WithTimeout(context.Background(), httpRequestTimeout)
		defer cancel()

		var bodyReader io.Reader
		if method == "POST" {
			bodyReader = bytes.NewReader([]byte(body))
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return writeErrorf(r, "building request: %v", err)
		}
		if method == "POST" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := client.Do(req)
		if err != nil {
			return writeErrorf(r, "HTTP request failed: %s %s", method, url)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, MaxHTTPRequestOutputBytes+1))

		var b strings.Builder
		fmt.Fprintf(&b, "HTTP %d %s %s\n", resp.StatusCode, method, url)
		show := respBody
		truncated := false
		if len(show) > MaxHTTPRequestOutputBytes-512 {
			show = show[:MaxHTTPRequestOutputBytes-512]
			truncated = true
		}
		if len(show) > 0 {
			fmt.Fprintf(&b, "\n%s", show)
			if truncated {
				fmt.Fprintf(&b, "\n... (truncated)")
			}
		}

		return writeString(r, b.String())
	}
}
