package audio

import "math"

// RMSLevel computes the root-mean-square energy of one capture frame.
// Derived, read-only quantity used for UI metering.
func RMSLevel(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}
