package filter

import (
	"math"

	"github.com/viterin/vek/vek32"
)

type (
	// Decibel is a level in dB, relative to full scale for peaks and in LUFS
	// for loudness.
	Decibel float32

	biquadState struct {
		x1, x2, y1, y2 float32
	}

	biquadCoeff struct {
		b0, b1, b2, a1, a2 float32
	}

	weighting struct {
		coeffs []biquadCoeff
		offset float32
	}
)

const (
	DefaultLoudnessTarget Decibel = -16
	DefaultPeakCeiling    Decibel = -1

	// gating, according to ITU-R BS.1770
	absoluteGate Decibel = -70
	subBlock             = 0.1 // s
	blockSubBlocks       = 4   // 400 ms blocks with 75 % overlap
)

// kWeighting returns the two stage K-weighting filter of BS.1770 for the
// sample rate; at 48 kHz these are the coefficients listed in the
// recommendation.
//
// ref: https://www.itu.int/dms_pubrec/itu-r/rec/bs/R-REC-BS.1770-5-202311-I!!PDF-E.pdf
func kWeighting(sampleRate int) weighting {
	fs := float64(sampleRate)
	// stage 1: high shelf modelling the acoustic effect of the head
	f0, g, q := 1681.974450955533, 3.999843853973347, 0.7071752369554196
	k := math.Tan(math.Pi * f0 / fs)
	vh := math.Pow(10, g/20)
	vb := math.Pow(vh, 0.4996667741545416)
	a0 := 1 + k/q + k*k
	shelf := biquadCoeff{
		b0: float32((vh + vb*k/q + k*k) / a0),
		b1: float32(2 * (k*k - vh) / a0),
		b2: float32((vh - vb*k/q + k*k) / a0),
		a1: float32(2 * (k*k - 1) / a0),
		a2: float32((1 - k/q + k*k) / a0),
	}
	// stage 2: RLB high pass
	f0, q = 38.13547087602444, 0.5003270373238773
	k = math.Tan(math.Pi * f0 / fs)
	a0 = 1 + k/q + k*k
	highpass := biquadCoeff{
		b0: 1, b1: -2, b2: 1,
		a1: float32(2 * (k*k - 1) / a0),
		a2: float32((1 - k/q + k*k) / a0),
	}
	// offset is to make up for the fact that K-weighting has slightly above
	// unity gain at 1 kHz
	return weighting{coeffs: []biquadCoeff{shelf, highpass}, offset: -0.691}
}

// Loudness returns the integrated loudness of mono audio in LUFS, gated as
// in BS.1770: 400 ms blocks every 100 ms, an absolute gate at -70 LUFS and a
// relative gate 10 LU below the mean of the blocks above the absolute gate.
// ok is false if no block passes the gates, e.g. for silence.
func Loudness(samples []int16, sampleRate int) (l Decibel, ok bool) {
	powers := blockPowers(samples, sampleRate)
	if len(powers) == 0 {
		return 0, false
	}
	w := kWeighting(sampleRate)
	tmpbool := make([]bool, len(powers))
	tmp := make([]float32, len(powers))
	b := vek32.GtNumber_Into(tmpbool, powers, loudness2power(absoluteGate, w.offset))
	m2 := vek32.Select_Into(tmp, powers, b)
	if len(m2) == 0 {
		return 0, false
	}
	relThreshold := vek32.Mean(m2) / 10 // 10 dB below the mean of the values above the absolute threshold
	b2 := vek32.GtNumber_Into(tmpbool[:len(m2)], m2, relThreshold)
	m3 := vek32.Select_Into(make([]float32, len(m2)), m2, b2)
	if len(m3) == 0 {
		return 0, false
	}
	return power2loudness(vek32.Mean(m3), w.offset), true
}

// blockPowers returns the mean square of the K-weighted signal for every
// 400 ms block, one block every 100 ms.
func blockPowers(samples []int16, sampleRate int) []float32 {
	n := int(float64(sampleRate) * subBlock)
	if n == 0 || len(samples) < n*blockSubBlocks {
		return nil
	}
	w := kWeighting(sampleRate)
	x := toFloat(samples, nil)
	var states [2]biquadState
	for k := range w.coeffs {
		states[k].Filter(x, w.coeffs[k])
	}
	// mean squares of the latest sub-blocks, written round robin
	window := make([]float32, blockSubBlocks)
	sq := make([]float32, n)
	var ret []float32
	for k := 0; (k+1)*n <= len(x); k++ {
		chunk := x[k*n : (k+1)*n]
		window[k%blockSubBlocks] = vek32.Mean(vek32.Mul_Into(sq, chunk, chunk))
		if k+1 >= blockSubBlocks {
			ret = append(ret, vek32.Mean(window))
		}
	}
	return ret
}

// Peak returns the sample peak in dBFS, or -Inf for silence.
func Peak(samples []int16) Decibel {
	if len(samples) == 0 {
		return Decibel(math.Inf(-1))
	}
	x := toFloat(samples, nil)
	vek32.Abs_Inplace(x)
	return amplitude2db(vek32.Max(x))
}

// Normalize scales samples in place so that their integrated loudness hits
// target, limited so that the sample peak stays at or below ceiling. It
// returns the applied gain in dB; silence is left alone.
func Normalize(samples []int16, sampleRate int, target, ceiling Decibel) Decibel {
	l, ok := Loudness(samples, sampleRate)
	if !ok {
		return 0
	}
	gain := min(target-l, ceiling-Peak(samples))
	x := toFloat(samples, nil)
	vek32.MulNumber_Inplace(x, db2amplitude(gain))
	fromFloat(x, samples)
	return gain
}

func toFloat(samples []int16, dst []float32) []float32 {
	if cap(dst) < len(samples) {
		dst = make([]float32, len(samples))
	}
	dst = dst[:len(samples)]
	for i, s := range samples {
		dst[i] = float32(s) / 32768
	}
	return dst
}

func fromFloat(x []float32, dst []int16) {
	for i, v := range x {
		dst[i] = int16(max(-32768, min(32767, math.Round(float64(v)*32768))))
	}
}

func (state *biquadState) Filter(buffer []float32, coeff biquadCoeff) {
	s := *state
	for i := 0; i < len(buffer); i++ {
		x := buffer[i]
		y := coeff.b0*x + coeff.b1*s.x1 + coeff.b2*s.x2 - coeff.a1*s.y1 - coeff.a2*s.y2
		s.x2, s.x1 = s.x1, x
		s.y2, s.y1 = s.y1, y
		buffer[i] = y
	}
	*state = s
}

func power2loudness(power, offset float32) Decibel {
	return Decibel(float32(10*math.Log10(float64(power))) + offset)
}

func loudness2power(loudness Decibel, offset float32) float32 {
	return (float32)(math.Pow(10, (float64(loudness)-float64(offset))/10))
}

func amplitude2db(a float32) Decibel {
	return Decibel(20 * math.Log10(float64(a)))
}

func db2amplitude(d Decibel) float32 {
	return float32(math.Pow(10, float64(d)/20))
}
