package compress

import (
	"bytes"
	"strings"
	"testing"
)

func TestCodec_SmallPayloadStoredVerbatim(t *testing.T) {
	c := NewCodec(DefaultThreshold)
	payload := []byte(`["Warning: curl POST: curl POST request"]`)

	encoded, err := c.Encode(payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(encoded, payload) {
		t.Error("payload below threshold must be stored verbatim")
	}
	if IsCompressed(encoded) {
		t.Error("verbatim payload must not look compressed")
	}

	decoded, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("round trip changed payload")
	}
}

func TestCodec_LargePayloadCompressed(t *testing.T) {
	c := NewCodec(DefaultThreshold)
	payload := []byte(strings.Repeat(`["Error: sudo invocation: sudo privilege escalation"]`, 50))

	encoded, err := c.Encode(payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !IsCompressed(encoded) {
		t.Fatal("payload above threshold must be compressed")
	}
	if len(encoded) >= len(payload) {
		t.Errorf("compressed size %d not smaller than original %d", len(encoded), len(payload))
	}

	decoded, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("round trip changed payload")
	}
}

func TestCodec_ZeroThresholdCompressesEverything(t *testing.T) {
	c := NewCodec(0)
	encoded, err := c.Encode([]byte("x"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !IsCompressed(encoded) {
		t.Error("zero threshold must compress every payload")
	}
}

func TestCodec_DecodePlainTextPassthrough(t *testing.T) {
	c := NewCodec(DefaultThreshold)
	plain := []byte("not compressed at all")
	decoded, err := c.Decode(plain)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, plain) {
		t.Error("plain data must pass through unchanged")
	}
}

func TestCodec_Concurrent(t *testing.T) {
	c := NewCodec(0)
	payload := []byte(strings.Repeat("concurrent payload ", 100))

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 50; j++ {
				enc, err := c.Encode(payload)
				if err != nil {
					done <- err
					return
				}
				dec, err := c.Decode(enc)
				if err != nil {
					done <- err
					return
				}
				if !bytes.Equal(dec, payload) {
					done <- errMismatch
					return
				}
			}
			done <- nil
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent round trip: %v", err)
		}
	}
}

var errMismatch = errMismatchType{}

type errMismatchType struct{}

func (errMismatchType) Error() string { return "round trip mismatch" }
