package filter_test

import (
	"math"
	"testing"

	"github.com/vsariola/scrawl/filter"
)

func sine(seconds float64, freq float64, db float64, sampleRate int) []int16 {
	a := math.Pow(10, db/20) * 32767
	ret := make([]int16, int(seconds*float64(sampleRate)))
	for i := range ret {
		ret[i] = int16(math.Round(a * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))))
	}
	return ret
}

func TestLoudness(t *testing.T) {
	for _, rate := range []int{44100, 48000} {
		// a 997 Hz sine at -20 dBFS measures -23 LUFS
		l, ok := filter.Loudness(sine(3, 997, -20, rate), rate)
		if !ok {
			t.Fatalf("%d Hz: sine did not pass the gates", rate)
		}
		if math.Abs(float64(l)+23.01) > 0.2 {
			t.Errorf("%d Hz: loudness %v LUFS, expected -23.01", rate, l)
		}
	}
	if _, ok := filter.Loudness(make([]int16, 48000), 48000); ok {
		t.Errorf("silence passed the gates")
	}
	if _, ok := filter.Loudness(make([]int16, 100), 48000); ok {
		t.Errorf("audio shorter than a block passed the gates")
	}
}

func TestNormalize(t *testing.T) {
	samples := sine(3, 997, -30, 48000)
	gain := filter.Normalize(samples, 48000, filter.DefaultLoudnessTarget, filter.DefaultPeakCeiling)
	if math.Abs(float64(gain)-17) > 0.3 {
		t.Errorf("gain %v dB, expected 17", gain)
	}
	if l, _ := filter.Loudness(samples, 48000); math.Abs(float64(l-filter.DefaultLoudnessTarget)) > 0.3 {
		t.Errorf("loudness after normalization: %v LUFS", l)
	}
	loud := sine(3, 997, -30, 48000)
	filter.Normalize(loud, 48000, 0, -1)
	if p := filter.Peak(loud); p > -0.99 {
		t.Errorf("peak %v dBFS exceeds the ceiling", p)
	}
}

func TestGate(t *testing.T) {
	samples := make([]int16, 960+100)
	for i := range samples {
		switch {
		case i < 480:
			samples[i] = 10
		case i < 960:
			samples[i] = 10000
		default:
			samples[i] = 5
		}
	}
	filter.Gate(samples, 48000, filter.DefaultGateThreshold)
	for i, v := range samples {
		if loud := i >= 480 && i < 960; loud != (v != 0) {
			t.Fatalf("sample %d: got %d after the gate", i, v)
		}
	}
}
