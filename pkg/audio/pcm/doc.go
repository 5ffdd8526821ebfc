// Package pcm describes 16-bit linear PCM audio formats and the arithmetic
// between byte counts, sample counts and durations.
//
// Example usage:
//
//	format := pcm.L16Mono8K
//
//	// Bytes in one 20ms telephony frame
//	n := format.BytesInDuration(20 * time.Millisecond) // 320
//
//	// Playback time of a relayed buffer
//	d := format.Duration(int64(len(buf)))
package pcm
