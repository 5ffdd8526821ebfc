// Package mulaw converts between G.711 μ-law and 16-bit linear PCM.
//
// Telephony media streams carry 8 kHz mono μ-law, one byte per sample.
// The linear side is signed 16-bit little-endian PCM, two bytes per sample.
// Both directions are stateless per call and safe for concurrent use.
//
// Example usage:
//
//	pcm := mulaw.Decode(payload)  // len(pcm) == 2*len(payload)
//	ulaw := mulaw.Encode(pcm)     // len(ulaw) == len(pcm)/2
package mulaw

import "encoding/binary"

const (
	// bias added to the magnitude before segment search (33 in the 14-bit domain).
	bias = 0x84

	// clip is the largest magnitude that survives biasing without overflow.
	clip = 32635
)

// DecodeSample expands one μ-law byte to a linear sample.
//
// The negative-zero code 0x7F decodes to -1 so that every code maps to a
// distinct linear value and EncodeSample(DecodeSample(b)) == b for all b.
func DecodeSample(b byte) int16 {
	u := ^b
	exp := (u >> 4) & 0x07
	mant := int32(u & 0x0F)
	mag := ((mant<<3 | bias) << exp) - bias
	if u&0x80 != 0 {
		if mag == 0 {
			return -1
		}
		return int16(-mag)
	}
	return int16(mag)
}

// EncodeSample compresses one linear sample to a μ-law byte.
// Magnitudes above 32635 are clipped.
func EncodeSample(s int16) byte {
	v := int32(s)
	var sign byte
	if v < 0 {
		sign = 0x80
		v = -v
	}
	if v > clip {
		v = clip
	}
	v += bias

	exp := byte(7)
	for mask := int32(0x4000); v&mask == 0 && exp > 0; mask >>= 1 {
		exp--
	}
	mant := byte(v>>(exp+3)) & 0x0F
	return ^(sign | exp<<4 | mant)
}

// Decode converts μ-law bytes to PCM16LE. The result is twice as long as ulaw.
func Decode(ulaw []byte) []byte {
	return AppendDecode(make([]byte, 0, 2*len(ulaw)), ulaw)
}

// AppendDecode appends the PCM16LE expansion of ulaw to dst.
func AppendDecode(dst, ulaw []byte) []byte {
	for _, b := range ulaw {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(DecodeSample(b)))
	}
	return dst
}

// Encode converts PCM16LE to μ-law bytes. The result is len(pcm)/2 bytes;
// a trailing odd byte is not a whole sample and is dropped.
func Encode(pcm []byte) []byte {
	return AppendEncode(make([]byte, 0, len(pcm)/2), pcm)
}

// AppendEncode appends the μ-law compression of pcm to dst.
// A trailing odd byte of pcm is ignored.
func AppendEncode(dst, pcm []byte) []byte {
	for i := 0; i+1 < len(pcm); i += 2 {
		dst = append(dst, EncodeSample(int16(binary.LittleEndian.Uint16(pcm[i:]))))
	}
	return dst
}
