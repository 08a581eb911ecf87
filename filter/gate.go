package filter

import (
	"github.com/viterin/vek/vek32"
)

const (
	DefaultGateThreshold Decibel = -50
	gateFrame                    = 0.01 // s
)

// Gate zeroes every 10 ms frame of samples whose RMS level is below
// threshold dBFS. A trailing partial frame is judged on its own.
func Gate(samples []int16, sampleRate int, threshold Decibel) {
	n := max(int(float64(sampleRate)*gateFrame), 1)
	limit := db2amplitude(threshold)
	limit *= limit
	var tmp []float32
	for i := 0; i < len(samples); i += n {
		frame := samples[i:min(i+n, len(samples))]
		tmp = toFloat(frame, tmp)
		if vek32.Dot(tmp, tmp)/float32(len(tmp)) < limit {
			clear(frame)
		}
	}
}

// NoiseGate returns Gate as a filter for captured blocks.
func NoiseGate(sampleRate int, threshold Decibel) func([]int16) {
	return func(samples []int16) { Gate(samples, sampleRate, threshold) }
}
