package webhook_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/prepwise/internal/webhook"
)

var fixedNow = time.Unix(1_750_000_000, 0)

func newVerifier(secret string) *webhook.Verifier {
	v := webhook.NewVerifier(secret, 30*time.Minute)
	v.Now = func() time.Time { return fixedNow }
	return v
}

func TestVerify_ValidSignature(t *testing.T) {
	body := []byte(`{}`)
	header := webhook.Sign([]byte("abc"), fixedNow, body)

	if err := newVerifier("abc").Verify(header, body); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerify_WithinWindow(t *testing.T) {
	body := []byte(`{"data":{}}`)
	for _, offset := range []time.Duration{0, -29 * time.Minute, -30 * time.Minute, 29 * time.Minute} {
		header := webhook.Sign([]byte("abc"), fixedNow.Add(offset), body)
		if err := newVerifier("abc").Verify(header, body); err != nil {
			t.Fatalf("offset %v: expected valid signature, got %v", offset, err)
		}
	}
}

func TestVerify_Rejections(t *testing.T) {
	body := []byte(`{"data":{"analysis":{"role":"backend"}}}`)
	valid := webhook.Sign([]byte("abc"), fixedNow, body)

	cases := []struct {
		name   string
		header string
		body   []byte
		want   error
	}{
		{"empty header", "", body, webhook.ErrMalformedSignature},
		{"single token", fmt.Sprintf("t=%d", fixedNow.Unix()), body, webhook.ErrMalformedSignature},
		{"missing v0", fmt.Sprintf("t=%d,v1=abc", fixedNow.Unix()), body, webhook.ErrMalformedSignature},
		{"missing t", "x=1,v0=abc", body, webhook.ErrMalformedSignature},
		{"non numeric t", "t=yesterday,v0=abc", body, webhook.ErrMalformedSignature},
		{"expired", webhook.Sign([]byte("abc"), fixedNow.Add(-time.Hour), body), body, webhook.ErrRequestExpired},
		{"far future", webhook.Sign([]byte("abc"), fixedNow.Add(time.Hour), body), body, webhook.ErrRequestExpired},
		{"wrong secret", webhook.Sign([]byte("other"), fixedNow, body), body, webhook.ErrInvalidSignature},
		{"mutated body", valid, []byte(`{"data":{"analysis":{"role":"frontend"}}}`), webhook.ErrInvalidSignature},
		{"tampered digest", fmt.Sprintf("t=%d,v0=%064d", fixedNow.Unix(), 0), body, webhook.ErrInvalidSignature},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := newVerifier("abc").Verify(tc.header, tc.body)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVerify_TokenOrderAndWhitespace(t *testing.T) {
	body := []byte(`{}`)
	header := webhook.Sign([]byte("abc"), fixedNow, body)
	tsPart, sigPart, ok := strings.Cut(header, ",")
	if !ok {
		t.Fatalf("unexpected header %q", header)
	}

	reordered := " " + sigPart + " , " + tsPart + " "
	if err := newVerifier("abc").Verify(reordered, body); err != nil {
		t.Fatalf("expected reordered header to verify, got %v", err)
	}
}

func TestVerify_DefaultsToWallClock(t *testing.T) {
	body := []byte(`{}`)
	v := &webhook.Verifier{Secret: []byte("abc")}
	if err := v.Verify(webhook.Sign([]byte("abc"), time.Now(), body), body); err != nil {
		t.Fatalf("expected valid signature with defaults, got %v", err)
	}
	if err := v.Verify(webhook.Sign([]byte("abc"), time.Now().Add(-time.Hour), body), body); !errors.Is(err, webhook.ErrRequestExpired) {
		t.Fatalf("expected default tolerance to reject an hour old request, got %v", err)
	}
}
