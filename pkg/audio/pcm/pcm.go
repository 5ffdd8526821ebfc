package pcm

import (
	"fmt"
	"time"
)

// Format is a mono 16-bit linear PCM format identified by its sample rate.
type Format int

const (
	// L16Mono8K is the linear form of telephony audio.
	L16Mono8K Format = iota
	// L16Mono16K is wideband speech.
	L16Mono16K
	// L16Mono24K is the rate realtime speech models emit.
	L16Mono24K
)

const (
	channels   = 1
	depth      = 16
	sampleSize = channels * depth / 8
)

var rates = [...]int{
	L16Mono8K:  8000,
	L16Mono16K: 16000,
	L16Mono24K: 24000,
}

func (f Format) rate() int {
	if f < 0 || int(f) >= len(rates) {
		panic("pcm: invalid audio type")
	}
	return rates[f]
}

// SampleRate returns the sample rate in Hz.
func (f Format) SampleRate() int { return f.rate() }

// Channels returns the channel count, always 1.
func (f Format) Channels() int {
	f.rate()
	return channels
}

// Depth returns the bits per sample, always 16.
func (f Format) Depth() int {
	f.rate()
	return depth
}

// Samples returns the number of whole samples in bytes. A trailing odd byte
// is not a sample.
func (f Format) Samples(bytes int64) int64 {
	f.rate()
	return bytes / sampleSize
}

// SamplesInDuration returns the number of samples played in d.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.rate()) * d / time.Second)
}

// BytesInDuration returns the size of d worth of audio.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * sampleSize
}

// Duration returns the playback time of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.rate())
}

// BytesRate returns bytes per second.
func (f Format) BytesRate() int {
	return f.rate() * sampleSize
}

// String returns the MIME-style name, e.g. "audio/L16; rate=8000; channels=1".
func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", f.rate(), channels)
}
