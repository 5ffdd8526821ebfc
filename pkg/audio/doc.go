// Package audio groups the audio helpers used by the bridge:
//
//   - mulaw: G.711 μ-law to and from 16-bit linear PCM
//   - pcm: linear PCM format arithmetic
package audio
