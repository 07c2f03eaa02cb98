package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries "t=<unix seconds>,v0=<hex hmac>".
const SignatureHeader = "ElevenLabs-Signature"

// DefaultTolerance is how far a signature timestamp may be from now.
const DefaultTolerance = 30 * time.Minute

var (
	ErrMalformedSignature = errors.New("missing or malformed signature header")
	ErrRequestExpired     = errors.New("signature timestamp outside tolerance")
	ErrInvalidSignature   = errors.New("signature mismatch")
)

// Verifier authenticates webhook deliveries signed with a shared secret.
type Verifier struct {
	Secret    []byte
	Tolerance time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{Secret: []byte(secret), Tolerance: tolerance}
}

// Verify checks header against body. It has no side effects; the error is
// one of ErrMalformedSignature, ErrRequestExpired or ErrInvalidSignature.
func (v *Verifier) Verify(header string, body []byte) error {
	ts, sig, err := parseHeader(header)
	if err != nil {
		return err
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp %q", ErrMalformedSignature, ts)
	}

	tol := v.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	nowMs := now().UnixMilli()
	reqMs := sec * 1000
	if reqMs < nowMs-tol.Milliseconds() || reqMs > nowMs+tol.Milliseconds() {
		return ErrRequestExpired
	}

	want := "v0=" + digest(v.Secret, ts, body)
	if !hmac.Equal([]byte(want), []byte("v0="+sig)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the signature header value for body at ts.
func Sign(secret []byte, ts time.Time, body []byte) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return "t=" + t + ",v0=" + digest(secret, t, body)
}

func digest(secret []byte, ts string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseHeader(header string) (ts, sig string, err error) {
	parts := strings.Split(header, ",")
	if len(parts) < 2 {
		return "", "", ErrMalformedSignature
	}
	for _, p := range parts {
		k, val, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "t":
			ts = strings.TrimSpace(val)
		case "v0":
			sig = strings.TrimSpace(val)
		}
	}
	if ts == "" || sig == "" {
		return "", "", ErrMalformedSignature
	}
	return ts, sig, nil
}
