// Package convert implements the stateless format conversion stage that
// bridges a capture endpoint's negotiated PCM format to a render endpoint's,
// per spec.md §4.4: channel up/down-mix followed by linear-interpolation
// resampling. Every function here is a pure function of its inputs and the
// caller-supplied scratch buffer — no state is carried across calls, which
// is a deliberate simplification (see the doc comment on Resample).
package convert

import (
	"math"

	"github.com/Fallstop/SpeedSwitchHub/internal/pcm"
)

// NeedsConversion reports whether samples produced in cap must be converted
// before they can be written to an endpoint negotiated at rnd.
func NeedsConversion(cap, rnd pcm.Format) bool {
	return !cap.Equal(rnd)
}

// ConvertChannels rewrites in (inChannels interleaved) into scratch at
// outChannels, returning the slice of scratch actually used. Policy:
//   - outChannels == inChannels: identity (callers should skip this call
//     entirely in that case; it is a correct no-op here too).
//   - outChannels < inChannels: stereo-to-mono is averaged, (L+R)*0.5;
//     anything else truncates to the first outChannels channels.
//   - outChannels > inChannels: copies the channels present, then
//     duplicates channel 0 into the remaining output channels.
func ConvertChannels(in []float32, inChannels, outChannels int, scratch []float32) []float32 {
	if inChannels <= 0 || outChannels <= 0 {
		return scratch[:0]
	}
	frames := len(in) / inChannels
	needed := frames * outChannels
	if cap(scratch) < needed {
		scratch = make([]float32, needed)
	}
	out := scratch[:needed]

	switch {
	case outChannels == inChannels:
		copy(out, in[:needed])

	case outChannels < inChannels:
		if inChannels == 2 && outChannels == 1 {
			for f := 0; f < frames; f++ {
				l := in[f*2]
				r := in[f*2+1]
				out[f] = (l + r) * 0.5
			}
		} else {
			for f := 0; f < frames; f++ {
				copy(out[f*outChannels:(f+1)*outChannels], in[f*inChannels:f*inChannels+outChannels])
			}
		}

	default: // outChannels > inChannels
		for f := 0; f < frames; f++ {
			srcFrame := in[f*inChannels : (f+1)*inChannels]
			dstFrame := out[f*outChannels : (f+1)*outChannels]
			copy(dstFrame, srcFrame)
			for c := inChannels; c < outChannels; c++ {
				dstFrame[c] = srcFrame[0]
			}
		}
	}
	return out
}

// Resample performs per-channel linear interpolation from inRate to
// outRate over channels-interleaved samples, writing into scratch. Output
// frame count is ceil(inFrames * outRate / inRate).
//
// No anti-aliasing filter is applied and no interpolation state carries
// across calls — each call treats its input as a self-contained block, so
// consecutive calls at differing rates can show a small discontinuity at
// the block boundary. This is flagged, not fixed (spec.md §9 Open
// Questions): higher-quality resampling is explicitly out of scope for
// conversational/game audio.
func Resample(in []float32, inRate, outRate uint32, channels int, scratch []float32) []float32 {
	if channels <= 0 || inRate == 0 || outRate == 0 || len(in) == 0 {
		return scratch[:0]
	}
	inFrames := len(in) / channels
	if inFrames == 0 {
		return scratch[:0]
	}
	if inRate == outRate {
		needed := inFrames * channels
		if cap(scratch) < needed {
			scratch = make([]float32, needed)
		}
		out := scratch[:needed]
		copy(out, in[:needed])
		return out
	}

	outFrames := int(math.Ceil(float64(inFrames) * float64(outRate) / float64(inRate)))
	needed := outFrames * channels
	if cap(scratch) < needed {
		scratch = make([]float32, needed)
	}
	out := scratch[:needed]

	for f := 0; f < outFrames; f++ {
		src := float64(f) * float64(inRate) / float64(outRate)
		lo := int(math.Floor(src))
		hi := int(math.Ceil(src))
		frac := float32(src - float64(lo))

		if lo < 0 {
			lo = 0
		}
		if lo > inFrames-1 {
			lo = inFrames - 1
		}
		if hi < 0 {
			hi = 0
		}
		if hi > inFrames-1 {
			hi = inFrames - 1
		}

		for c := 0; c < channels; c++ {
			a := in[lo*channels+c]
			b := in[hi*channels+c]
			out[f*channels+c] = a + (b-a)*frac
		}
	}
	return out
}

// Convert applies channel conversion first (which only changes frame count
// when channel counts differ), then resampling, returning an owned view
// into scratch. Ordering is deliberate: the resampler always runs over the
// final channel count, and it runs over fewer samples when down-mixing.
//
// channelScratch and scratch are both reused across calls to avoid
// per-block allocation (spec.md §4.4): the caller passes back whatever it
// received as the second return value on the next call, the same way it
// already does with the first return value's backing array (scratch). Pass
// nil for either on the first call.
func Convert(in []float32, capFmt, rndFmt pcm.Format, channelScratch, scratch []float32) ([]float32, []float32) {
	converted := in
	if capFmt.Channels != rndFmt.Channels {
		converted = ConvertChannels(in, int(capFmt.Channels), int(rndFmt.Channels), channelScratch)
		channelScratch = converted[:cap(converted)]
	}
	if capFmt.SampleRate == rndFmt.SampleRate {
		needed := len(converted)
		if cap(scratch) < needed {
			scratch = make([]float32, needed)
		}
		out := scratch[:needed]
		copy(out, converted)
		return out, channelScratch
	}
	return Resample(converted, capFmt.SampleRate, rndFmt.SampleRate, int(rndFmt.Channels), scratch), channelScratch
}
