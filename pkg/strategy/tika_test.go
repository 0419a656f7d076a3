package strategy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pyhub-apps/pdfpagebench/internal/testpdf"
)

func tikaServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/meta" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		if _, err := io.Copy(io.Discard, r.Body); err != nil {
			t.Errorf("reading body: %v", err)
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTikaStrategy(t *testing.T) {
	path := testpdf.Write(t, t.TempDir(), "doc.pdf", testpdf.Pages(3))

	tests := []struct {
		name      string
		status    int
		body      string
		wantPages int
		wantKind  Kind
		contract  bool
	}{
		{"string count", 200, `{"xmpTPg:NPages":"12","Content-Type":"application/pdf"}`, 12, "", false},
		{"numeric count", 200, `{"xmpTPg:NPages":7}`, 7, "", false},
		{"array count", 200, `{"xmpTPg:NPages":["4"]}`, 4, "", false},
		{"missing count", 200, `{"Content-Type":"application/pdf"}`, 0, "", false},
		{"encrypted", 422, "org.apache.tika.exception.EncryptedDocumentException: Unable to process: document is encrypted", 0, KindEncrypted, false},
		{"unprocessable", 422, "parse failure", 0, KindMalformed, false},
		{"server error", 500, "boom", 0, KindMalformed, false},
		{"unsupported", 415, "", 0, KindUnsupported, false},
		{"not found", 404, "", 0, KindUnavailable, false},
		{"not json", 200, "<html>", 0, KindTypeMismatch, false},
		{"non-integer count", 200, `{"xmpTPg:NPages":"many"}`, 0, "", true},
		{"fractional count", 200, `{"xmpTPg:NPages":2.5}`, 0, "", true},
		{"count beyond int range", 200, `{"xmpTPg:NPages":1e300}`, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := tikaServer(t, tt.status, tt.body)
			s := Tika(TikaOptions{URL: srv.URL + "/", Timeout: 5 * time.Second})

			n, err := s.Extract(context.Background(), Input{Path: path})
			switch {
			case tt.contract:
				var ce *ContractError
				if !errors.As(err, &ce) {
					t.Fatalf("error = %v, want *ContractError", err)
				}
				if s.Recognizes(err) {
					t.Error("contract violations must not be recognized")
				}
			case tt.wantKind != "":
				if got := Classify(err); got != tt.wantKind {
					t.Fatalf("kind = %q (%v), want %q", got, err, tt.wantKind)
				}
			default:
				if err != nil {
					t.Fatalf("Extract() error = %v", err)
				}
				if n != tt.wantPages {
					t.Errorf("pages = %d, want %d", n, tt.wantPages)
				}
			}
		})
	}
}

func TestTikaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	path := testpdf.Write(t, t.TempDir(), "doc.pdf", testpdf.Pages(1))
	s := Tika(TikaOptions{URL: url, Timeout: time.Second})

	_, err := s.Extract(context.Background(), Input{Path: path})
	if got := Classify(err); got != KindUnavailable {
		t.Fatalf("kind = %q (%v), want unavailable", got, err)
	}
	if s.Recognizes(err) {
		t.Error("an unreachable server must abort the run")
	}
}

func TestTikaRateLimit(t *testing.T) {
	c := NewTikaClient(TikaOptions{RequestsPerSecond: 1000})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := c.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	slow := NewTikaClient(TikaOptions{RequestsPerSecond: 0.001})
	if err := slow.Wait(ctx); err != nil {
		t.Fatalf("first Wait() should use the burst, got %v", err)
	}
	if err := slow.Wait(cancelled); err == nil {
		t.Error("Wait() on a cancelled context should fail")
	}

	if err := NewTikaClient(TikaOptions{}).Wait(cancelled); err != nil {
		t.Errorf("unlimited client Wait() = %v, want nil", err)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		limit int
		want  string
	}{
		{"first line only", "  bad input \nstack trace", 50, "bad input"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"cut inside a rune", "ab\u00e9cd", 3, "ab"},
		{"cut after a rune", "ab\u00e9cd", 4, "ab\u00e9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := firstLine([]byte(tt.body), tt.limit)
			if got != tt.want {
				t.Errorf("firstLine() = %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("firstLine() = %q is not valid UTF-8", got)
			}
		})
	}
}
