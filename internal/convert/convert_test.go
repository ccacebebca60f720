package convert

import (
	"math"
	"testing"

	"github.com/Fallstop/SpeedSwitchHub/internal/pcm"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestConvertChannels_StereoRoundTrip(t *testing.T) {
	// Invariant 4 (spec.md §8): convert_channels(x, 2, 2, s); s == x.
	x := []float32{0.1, -0.2, 0.3, -0.4, 0.5, -0.6}
	out := ConvertChannels(x, 2, 2, make([]float32, 0, len(x)))
	assert.Equal(t, x, out)
}

func TestConvertChannels_StereoToMonoAverages(t *testing.T) {
	in := []float32{1.0, 3.0, -1.0, 1.0}
	out := ConvertChannels(in, 2, 1, nil)
	assert.InDeltaSlice(t, []float32{2.0, 0.0}, out, 1e-6)
}

func TestConvertChannels_MonoToStereoDuplicates(t *testing.T) {
	in := []float32{0.5, -0.5}
	out := ConvertChannels(in, 1, 2, nil)
	assert.Equal(t, []float32{0.5, 0.5, -0.5, -0.5}, out)
}

func TestConvertChannels_UpmixFillsRemainderFromChannelZero(t *testing.T) {
	in := []float32{1.0, 2.0} // one frame, 2 channels
	out := ConvertChannels(in, 2, 4, nil)
	assert.Equal(t, []float32{1.0, 2.0, 1.0, 1.0}, out)
}

func TestResample_IdentityWhenRatesMatch(t *testing.T) {
	// Invariant 5: resample(x, R, R, C, s); s == x (within float equality).
	x := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	out := Resample(x, 48000, 48000, 2, nil)
	assert.Equal(t, x, out)
}

func TestResample_OutputLength(t *testing.T) {
	// Invariant 6: output frames == ceil(in_frames * out_rate / in_rate).
	rapid.Check(t, func(rt *rapid.T) {
		inRate := uint32(rapid.IntRange(1000, 192000).Draw(rt, "inRate"))
		outRate := uint32(rapid.IntRange(1000, 192000).Draw(rt, "outRate"))
		channels := rapid.IntRange(1, 4).Draw(rt, "channels")
		inFrames := rapid.IntRange(1, 200).Draw(rt, "inFrames")

		in := make([]float32, inFrames*channels)
		for i := range in {
			in[i] = float32(i)
		}

		out := Resample(in, inRate, outRate, channels, nil)

		wantFrames := int(math.Ceil(float64(inFrames) * float64(outRate) / float64(inRate)))
		gotFrames := len(out) / channels
		if gotFrames != wantFrames {
			rt.Fatalf("output frames = %d, want %d (inFrames=%d inRate=%d outRate=%d)",
				gotFrames, wantFrames, inFrames, inRate, outRate)
		}
	})
}

func TestResample_UpsampleInterpolatesBetweenSamples(t *testing.T) {
	in := []float32{0.0, 1.0} // mono, 2 frames
	out := Resample(in, 1, 2, 1, nil)
	// ceil(2*2/1) = 4 output frames. src for f=0 is 0 -> 0.0; f=1 is 0.5 -> interpolated 0.5;
	// f=2 is 1.0 -> 1.0; f=3 is 1.5 -> both neighbors clamp to frame 1 -> 1.0.
	assert.Len(t, out, 4)
	assert.InDelta(t, 0.0, out[0], 1e-6)
	assert.InDelta(t, 0.5, out[1], 1e-6)
	assert.InDelta(t, 1.0, out[2], 1e-6)
}

func TestConvert_Deterministic(t *testing.T) {
	// Invariant 7: convert(x, cap, rnd, s) is a pure function of (x, cap, rnd).
	capFmt := pcm.Format{SampleRate: 44100, Channels: 2}
	rndFmt := pcm.Format{SampleRate: 48000, Channels: 1}
	in := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}

	out1, _ := Convert(append([]float32(nil), in...), capFmt, rndFmt, nil, nil)
	out2, _ := Convert(append([]float32(nil), in...), capFmt, rndFmt, nil, nil)
	assert.Equal(t, out1, out2)
}

func TestConvert_NoConversionNeeded(t *testing.T) {
	fmt1 := pcm.Format{SampleRate: 48000, Channels: 2}
	in := []float32{1, 2, 3, 4}
	out, _ := Convert(in, fmt1, fmt1, nil, nil)
	assert.Equal(t, in, out)
}

func TestConvert_ReusesScratchBuffersAcrossCalls(t *testing.T) {
	// Invariant: channelScratch/scratch are reused, not reallocated, across
	// consecutive calls with the same shapes (spec.md §4.4).
	capFmt := pcm.Format{SampleRate: 48000, Channels: 2}
	rndFmt := pcm.Format{SampleRate: 48000, Channels: 1}
	in := []float32{0.1, 0.2, 0.3, 0.4}

	out1, chScratch1 := Convert(append([]float32(nil), in...), capFmt, rndFmt, nil, nil)
	scratchArray := &out1[0]
	chScratchArray := &chScratch1[0]

	out2, chScratch2 := Convert(append([]float32(nil), in...), capFmt, rndFmt, chScratch1, out1)
	if &out2[0] != scratchArray {
		t.Error("expected the final scratch buffer's backing array to be reused")
	}
	if &chScratch2[0] != chScratchArray {
		t.Error("expected the channel scratch buffer's backing array to be reused")
	}
}

func TestNeedsConversion(t *testing.T) {
	a := pcm.Format{SampleRate: 48000, Channels: 2}
	b := pcm.Format{SampleRate: 48000, Channels: 2}
	c := pcm.Format{SampleRate: 44100, Channels: 2}

	assert.False(t, NeedsConversion(a, b))
	assert.True(t, NeedsConversion(a, c))
}
