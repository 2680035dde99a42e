package signalchain

// Westford front end. Only the UDC-C first LO varies between sessions; it is
// multiplied by four before reaching the first mixer.
const (
	DefaultUDCLOMHz      = 7054.6
	UDCLOMultiplier      = 4.0
	SecondLOMHz          = 22500.0
	WestfordChainName    = "westford_signal_chain"
	westfordLastFilterLo = 700.0
	westfordLastFilterHi = 1200.0
)

// WestfordOptions selects the optional backend stages of the Westford chain.
type WestfordOptions struct {
	// LastFilter terminates the analog chain with the 700-1200 MHz IF filter.
	LastFilter bool
	// Sampler is the digitizer, placed after the last filter when both are set.
	Sampler *AliasingSampler
}

// NewWestford builds the Westford signal chain for the given UDC LO setting.
func NewWestford(udcLOMHz float64, opts WestfordOptions) *Chain {
	c := NewChain(WestfordChainName)
	c.Add(&Filter{name: "filter1", low: 4000, high: 14000})
	c.Add(NewMixer("mixer1", udcLOMHz*UDCLOMultiplier))
	c.Add(&Filter{name: "filter2", low: 20000, high: 22000})
	c.Add(NewMixer("mixer2", SecondLOMHz))
	if opts.LastFilter {
		c.Add(&Filter{name: "filter3", low: westfordLastFilterLo, high: westfordLastFilterHi})
	}
	if opts.Sampler != nil {
		c.Add(opts.Sampler)
	}
	return c
}
