package mulaw

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestDecodeSampleKnownValues(t *testing.T) {
	tests := []struct {
		code byte
		want int16
	}{
		{0xFF, 0},
		{0x7F, -1},
		{0x80, 32124},
		{0x00, -32124},
		{0xFE, 8},
		{0x7E, -8},
		{0xEF, 132},
		{0xF0, 120},
	}
	for _, tt := range tests {
		if got := DecodeSample(tt.code); got != tt.want {
			t.Errorf("DecodeSample(0x%02X) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestEncodeSampleKnownValues(t *testing.T) {
	tests := []struct {
		sample int16
		want   byte
	}{
		{0, 0xFF},
		{-1, 0x7F},
		{32767, 0x80},
		{-32768, 0x00},
		{32635, 0x80},
		{8, 0xFE},
	}
	for _, tt := range tests {
		if got := EncodeSample(tt.sample); got != tt.want {
			t.Errorf("EncodeSample(%d) = 0x%02X, want 0x%02X", tt.sample, got, tt.want)
		}
	}
}

func TestByteIdempotence(t *testing.T) {
	for i := 0; i < 256; i++ {
		b := byte(i)
		if got := EncodeSample(DecodeSample(b)); got != b {
			t.Errorf("EncodeSample(DecodeSample(0x%02X)) = 0x%02X", b, got)
		}
	}

	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	if got := Encode(Decode(all)); !bytes.Equal(got, all) {
		t.Fatal("Encode(Decode(all codes)) does not reproduce input")
	}
}

func TestDecodeDistinct(t *testing.T) {
	seen := make(map[int16]byte, 256)
	for i := 0; i < 256; i++ {
		v := DecodeSample(byte(i))
		if prev, ok := seen[v]; ok {
			t.Fatalf("codes 0x%02X and 0x%02X both decode to %d", prev, i, v)
		}
		seen[v] = byte(i)
	}
}

func TestQuantizationBound(t *testing.T) {
	for s := -clip; s <= clip; s++ {
		code := EncodeSample(int16(s))
		exp := ((^code) >> 4) & 0x07
		got := int(DecodeSample(code))
		diff := got - s
		if diff < 0 {
			diff = -diff
		}
		if limit := 4 << exp; diff > limit {
			t.Fatalf("sample %d: decoded %d, error %d exceeds %d", s, got, diff, limit)
		}
	}
}

func TestClipping(t *testing.T) {
	for _, s := range []int16{32636, 32767} {
		if got := DecodeSample(EncodeSample(s)); got != 32124 {
			t.Errorf("round trip of %d = %d, want 32124", s, got)
		}
	}
	for _, s := range []int16{-32636, -32768} {
		if got := DecodeSample(EncodeSample(s)); got != -32124 {
			t.Errorf("round trip of %d = %d, want -32124", s, got)
		}
	}
}

func TestLengths(t *testing.T) {
	for _, n := range []int{0, 1, 160, 161} {
		if got := len(Decode(make([]byte, n))); got != 2*n {
			t.Errorf("len(Decode(%d bytes)) = %d, want %d", n, got, 2*n)
		}
	}
	for _, n := range []int{0, 2, 320, 322} {
		if got := len(Encode(make([]byte, n))); got != n/2 {
			t.Errorf("len(Encode(%d bytes)) = %d, want %d", n, got, n/2)
		}
	}
}

func TestEncodeOddLengthTruncates(t *testing.T) {
	pcm := binary.LittleEndian.AppendUint16(nil, uint16(int16(1000)))
	pcm = binary.LittleEndian.AppendUint16(pcm, uint16(int16(-1000)))
	odd := append(bytes.Clone(pcm), 0x7F)

	got := Encode(odd)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if want := Encode(pcm); !bytes.Equal(got, want) {
		t.Fatalf("Encode(odd) = %x, want %x", got, want)
	}
	if got := Encode([]byte{0x01}); len(got) != 0 {
		t.Fatalf("Encode(1 byte) = %x, want empty", got)
	}
}

func TestDecodeLittleEndian(t *testing.T) {
	pcm := Decode([]byte{0x80, 0x00})
	if got := int16(binary.LittleEndian.Uint16(pcm[0:])); got != 32124 {
		t.Errorf("sample 0 = %d, want 32124", got)
	}
	if got := int16(binary.LittleEndian.Uint16(pcm[2:])); got != -32124 {
		t.Errorf("sample 1 = %d, want -32124", got)
	}
}

func TestAppendReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 64)
	out := AppendDecode(buf, []byte{0xFF, 0x7F})
	if len(out) != 4 || &out[0] != &buf[:1][0] {
		t.Fatal("AppendDecode did not append into the provided buffer")
	}
	enc := AppendEncode([]byte{0xAA}, out)
	if !bytes.Equal(enc, []byte{0xAA, 0xFF, 0x7F}) {
		t.Fatalf("AppendEncode = %x", enc)
	}
}
