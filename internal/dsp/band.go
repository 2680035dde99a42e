package dsp

import "math"

// binRange clamps [start,end) to [0,n).
// If the resulting interval is empty, it returns (0,0).
func binRange(n, start, end int) (int, int) {
	if n <= 0 {
		return 0, 0
	}
	if start < 0 {
		start = 0
	}
	if end <= 0 || end > n {
		end = n
	}
	if start >= end {
		return 0, 0
	}
	return start, end
}

// BandBins returns the half-open bin range of an n-point FFT covering
// [lowMHz, highMHz], clamped to the n/2+1 bins of a real spectrum. A band
// entirely below DC or above Nyquist yields (0,0).
func BandBins(n int, sampleRate, lowMHz, highMHz float64) (int, int) {
	if n <= 0 || sampleRate <= 0 || highMHz < lowMHz || highMHz < 0 {
		return 0, 0
	}
	res := sampleRate / float64(n)
	start := int(math.Floor(lowMHz / res))
	end := int(math.Ceil(highMHz/res)) + 1
	return binRange(n/2+1, start, end)
}

// PeakInBand returns the maximum value of db in [start,end).
// ok is false if the band is empty or holds no finite value.
func PeakInBand(db []float64, start, end int) (peak float64, bin int, ok bool) {
	s, e := binRange(len(db), start, end)
	if s == e {
		return 0, 0, false
	}
	peak = -math.MaxFloat64
	for i := s; i < e; i++ {
		if db[i] > peak {
			peak = db[i]
			bin = i
		}
	}
	if peak == -math.MaxFloat64 {
		return 0, bin, false
	}
	return peak, bin, true
}

// NoiseFloor averages the finite levels in [start,end), skipping the signal
// bin and its two neighbours.
func NoiseFloor(db []float64, start, end, signalBin int) (float64, bool) {
	s, e := binRange(len(db), start, end)
	if s == e {
		return 0, false
	}

	var sum float64
	var count int
	for i := s; i < e; i++ {
		if i >= signalBin-1 && i <= signalBin+1 {
			continue
		}
		v := db[i]
		if math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// SNR is the peak level above the noise floor of the whole spectrum, in dB.
// It is 0 when no floor can be estimated.
func SNR(db []float64, peakBin int) float64 {
	if peakBin < 0 || peakBin >= len(db) {
		return 0
	}
	noise, ok := NoiseFloor(db, 0, len(db), peakBin)
	if !ok {
		return 0
	}
	snr := db[peakBin] - noise
	if math.IsNaN(snr) || math.IsInf(snr, 0) {
		return 0
	}
	return snr
}
