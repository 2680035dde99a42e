package signalchain

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Chain is an ordered list of elements, from the sky end to the backend.
// Elements can only be appended; the order is never changed afterwards.
type Chain struct {
	name     string
	elements []Element
}

// NewChain returns an empty chain holding the given elements in order.
func NewChain(name string, elements ...Element) *Chain {
	c := &Chain{name: name}
	for _, e := range elements {
		c.Add(e)
	}
	return c
}

// Add appends an element at the backend end of the chain. A nil element,
// including a nil pointer of a concrete element type, is ignored.
func (c *Chain) Add(e Element) {
	if isNil(e) {
		return
	}
	c.elements = append(c.elements, e)
}

func isNil(e Element) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		return v.IsNil()
	}
	return false
}

// Name returns the chain's name.
func (c *Chain) Name() string { return c.name }

// Len returns the number of elements.
func (c *Chain) Len() int { return len(c.elements) }

// Elements returns a copy of the element list, sky end first.
func (c *Chain) Elements() []Element {
	out := make([]Element, len(c.elements))
	copy(out, c.elements)
	return out
}

// ConvertForward applies every element in order (sky to backend).
func (c *Chain) ConvertForward(s *Signal) {
	for _, e := range c.elements {
		e.Apply(s)
	}
}

// ConvertBackward applies every element in reverse order (backend to sky).
func (c *Chain) ConvertBackward(s *Signal) {
	for i := len(c.elements) - 1; i >= 0; i-- {
		c.elements[i].Apply(s)
	}
}

// MapForward maps a sky frequency to the backend. ok is false, and freq NaN,
// when no tone or more than one tone comes out of the chain.
func (c *Chain) MapForward(frequencyMHz float64) (freq float64, ok bool) {
	s := NewSignal(frequencyMHz)
	c.ConvertForward(s)
	return single(s)
}

// MapBackward maps a backend frequency to the sky. ok is false, and freq NaN,
// when no tone or more than one tone comes out of the chain.
func (c *Chain) MapBackward(frequencyMHz float64) (freq float64, ok bool) {
	s := NewSignal(frequencyMHz)
	c.ConvertBackward(s)
	return single(s)
}

func single(s *Signal) (float64, bool) {
	if s.ToneCount() != 1 {
		return math.NaN(), false
	}
	return s.tones[0].FrequencyMHz, true
}

// Pair is the image of two frequencies mapped independently. Low and High
// keep the order of the inputs, not of their values: a spectrally inverting
// chain returns Low > High.
type Pair struct {
	Low, High float64
	OK        bool
}

// Sorted returns the pair ordered by value.
func (p Pair) Sorted() Pair {
	if p.Low > p.High {
		p.Low, p.High = p.High, p.Low
	}
	return p
}

// Span returns High - Low, signed.
func (p Pair) Span() float64 {
	return p.High - p.Low
}

// MapPairForward maps both edges through the chain sky to backend. The inputs
// are not sorted and neither are the outputs.
func (c *Chain) MapPairForward(lowMHz, highMHz float64) Pair {
	lo, okLo := c.MapForward(lowMHz)
	hi, okHi := c.MapForward(highMHz)
	return Pair{Low: lo, High: hi, OK: okLo && okHi}
}

// MapPairBackward maps both edges through the chain backend to sky. The
// inputs are not sorted and neither are the outputs.
func (c *Chain) MapPairBackward(lowMHz, highMHz float64) Pair {
	lo, okLo := c.MapBackward(lowMHz)
	hi, okHi := c.MapBackward(highMHz)
	return Pair{Low: lo, High: hi, OK: okLo && okHi}
}

func (c *Chain) String() string {
	parts := make([]string, len(c.elements))
	for i, e := range c.elements {
		if st, ok := e.(fmt.Stringer); ok {
			parts[i] = st.String()
			continue
		}
		parts[i] = e.Name()
	}
	return c.name + ": " + strings.Join(parts, " -> ")
}
