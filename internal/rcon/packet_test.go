package rcon_test

import (
	"errors"
	"testing"

	"github.com/dantte-lp/gorcon/internal/rcon"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pkt  rcon.Packet
	}{
		{name: "empty body", pkt: rcon.Packet{RequestID: 1, Type: rcon.TypeAuth, Body: nil}},
		{name: "ascii body", pkt: rcon.Packet{RequestID: 42, Type: rcon.TypeExecCommand, Body: []byte("status")}},
		{name: "interior NUL bytes", pkt: rcon.Packet{RequestID: 7, Type: rcon.TypeResponseValue, Body: []byte("line1\x00line2")}},
		{name: "negative request id", pkt: rcon.Packet{RequestID: -1, Type: rcon.TypeAuthResponse, Body: []byte("-1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			encoded, err := rcon.Encode(tt.pkt, rcon.DefaultMaxFrameSize)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			outcome, got, consumed, err := rcon.TryDecodeOne(encoded, rcon.DefaultMaxFrameSize)
			if outcome != rcon.Frame {
				t.Fatalf("TryDecodeOne outcome = %v, err = %v, want Frame", outcome, err)
			}
			if consumed != len(encoded) {
				t.Fatalf("consumed = %d, want %d", consumed, len(encoded))
			}
			if got.RequestID != tt.pkt.RequestID || got.Type != tt.pkt.Type || string(got.Body) != string(tt.pkt.Body) {
				t.Fatalf("decoded %+v, want %+v", got, tt.pkt)
			}
		})
	}
}

func TestTryDecodeOneStreamReassembly(t *testing.T) {
	t.Parallel()

	pkt := rcon.Packet{RequestID: 5, Type: rcon.TypeExecCommand, Body: []byte("say hello")}
	encoded, err := rcon.Encode(pkt, rcon.DefaultMaxFrameSize)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Feed one byte at a time; every prefix short of the full frame must
	// report Need, and only the full frame produces Frame.
	for n := 1; n < len(encoded); n++ {
		outcome, _, _, _ := rcon.TryDecodeOne(encoded[:n], rcon.DefaultMaxFrameSize)
		if outcome != rcon.Need {
			t.Fatalf("prefix length %d: outcome = %v, want Need", n, outcome)
		}
	}

	outcome, got, consumed, err := rcon.TryDecodeOne(encoded, rcon.DefaultMaxFrameSize)
	if outcome != rcon.Frame {
		t.Fatalf("full frame: outcome = %v, err = %v, want Frame", outcome, err)
	}
	if consumed != len(encoded) || string(got.Body) != "say hello" {
		t.Fatalf("full frame decoded wrong: consumed=%d body=%q", consumed, got.Body)
	}
}

func TestTryDecodeOneTwoFramesInOneBuffer(t *testing.T) {
	t.Parallel()

	a := rcon.Packet{RequestID: 1, Type: rcon.TypeAuth, Body: []byte("secret")}
	b := rcon.Packet{RequestID: 2, Type: rcon.TypeExecCommand, Body: []byte("status")}

	encA, err := rcon.Encode(a, rcon.DefaultMaxFrameSize)
	if err != nil {
		t.Fatalf("Encode a: %v", err)
	}
	encB, err := rcon.Encode(b, rcon.DefaultMaxFrameSize)
	if err != nil {
		t.Fatalf("Encode b: %v", err)
	}

	buf := append(append([]byte{}, encA...), encB...)

	outcome, got, consumed, err := rcon.TryDecodeOne(buf, rcon.DefaultMaxFrameSize)
	if outcome != rcon.Frame {
		t.Fatalf("first frame: outcome = %v, err = %v", outcome, err)
	}
	if got.RequestID != a.RequestID {
		t.Fatalf("first frame request id = %d, want %d", got.RequestID, a.RequestID)
	}

	buf = buf[consumed:]
	outcome, got, _, err = rcon.TryDecodeOne(buf, rcon.DefaultMaxFrameSize)
	if outcome != rcon.Frame {
		t.Fatalf("second frame: outcome = %v, err = %v", outcome, err)
	}
	if got.RequestID != b.RequestID {
		t.Fatalf("second frame request id = %d, want %d", got.RequestID, b.RequestID)
	}
}

func TestTryDecodeOneBoundaries(t *testing.T) {
	t.Parallel()

	const maxFrameSize = 4096

	tests := []struct {
		name        string
		sizeField   int32
		extra       []byte // bytes following the 4-byte size_field
		wantOutcome rcon.Outcome
		wantErr     error
	}{
		{
			name:        "size_field below minimum frame size",
			sizeField:   9,
			extra:       make([]byte, 9),
			wantOutcome: rcon.Invalid,
			wantErr:     rcon.ErrSizeFieldTooSmall,
		},
		{
			name:        "size_field at max_frame_size minus size prefix is accepted pending body",
			sizeField:   int32(maxFrameSize - 4),
			extra:       nil,
			wantOutcome: rcon.Need,
		},
		{
			name:        "size_field exceeding max_frame_size bound is rejected",
			sizeField:   int32(maxFrameSize - 3),
			extra:       nil,
			wantOutcome: rcon.Invalid,
			wantErr:     rcon.ErrSizeFieldTooLarge,
		},
		{
			// On a 64-bit platform sizeField=MaxInt32 can never overflow int
			// arithmetic, so it is the max_frame_size bound, not the
			// overflow guard, that rejects it here; either way no
			// allocation occurs before the rejection.
			name:        "max int32 size_field rejected without allocation",
			sizeField:   0x7FFFFFFF,
			extra:       nil,
			wantOutcome: rcon.Invalid,
			wantErr:     rcon.ErrSizeFieldTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := make([]byte, 4+len(tt.extra))
			buf[0] = byte(tt.sizeField)
			buf[1] = byte(tt.sizeField >> 8)
			buf[2] = byte(tt.sizeField >> 16)
			buf[3] = byte(tt.sizeField >> 24)
			copy(buf[4:], tt.extra)

			outcome, _, _, err := rcon.TryDecodeOne(buf, maxFrameSize)
			if outcome != tt.wantOutcome {
				t.Fatalf("outcome = %v, err = %v, want %v", outcome, err, tt.wantOutcome)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTryDecodeOneMissingTerminator(t *testing.T) {
	t.Parallel()

	// A complete frame per size_field, but the last two bytes are not NUL.
	body := []byte("hi")
	sizeField := int32(4 + 4 + len(body) + 2)
	buf := make([]byte, 4+int(sizeField))
	buf[0] = byte(sizeField)
	buf[1] = byte(sizeField >> 8)
	buf[2] = byte(sizeField >> 16)
	buf[3] = byte(sizeField >> 24)
	// request_id, type_code left zero
	copy(buf[12:], body)
	buf[len(buf)-2] = 'x'
	buf[len(buf)-1] = 'y'

	outcome, _, _, err := rcon.TryDecodeOne(buf, rcon.DefaultMaxFrameSize)
	if outcome != rcon.Invalid {
		t.Fatalf("outcome = %v, want Invalid", outcome)
	}
	if !errors.Is(err, rcon.ErrMissingTerminator) {
		t.Fatalf("err = %v, want ErrMissingTerminator", err)
	}
}

func TestEncodeRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	pkt := rcon.Packet{RequestID: 1, Type: rcon.TypeResponseValue, Body: make([]byte, 8192)}
	_, err := rcon.Encode(pkt, 256)
	if !errors.Is(err, rcon.ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}
