package dsp

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// CachedSpectrum keeps the Hamming window and FFT plan for one transform
// length so repeated spectra avoid rebuilding them.
type CachedSpectrum struct {
	mu        sync.Mutex
	window    []float64
	windowSum float64
	size      int
	fft       *fourier.FFT
}

// NewCachedSpectrum prepares resources for transforms of length size.
func NewCachedSpectrum(size int) *CachedSpectrum {
	c := &CachedSpectrum{}
	c.resize(size)
	return c
}

func (c *CachedSpectrum) resize(size int) {
	c.size = size
	c.window = Hamming(size)
	c.windowSum = floats.Sum(c.window)
	if size > 0 {
		c.fft = fourier.NewFFT(size)
	} else {
		c.fft = nil
	}
}

// PowerSpectrum is PowerSpectrum using the cached window and plan. Samples
// of another length fall back to the uncached path.
func (c *CachedSpectrum) PowerSpectrum(samples []float64) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(samples) == 0 {
		return []float64{}
	}
	if len(samples) != c.size {
		return PowerSpectrum(samples)
	}
	// The FFT plan holds scratch space and is not safe for concurrent use.
	coeffs := c.fft.Coefficients(nil, ApplyWindow(samples, c.window))
	return toDB(coeffs, c.windowSum)
}

// UpdateSize recreates the cached resources for a new transform length.
func (c *CachedSpectrum) UpdateSize(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resize(size)
}

// Size returns the cached transform length.
func (c *CachedSpectrum) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
