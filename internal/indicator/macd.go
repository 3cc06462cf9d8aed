package indicator

// MACD calculates Moving Average Convergence Divergence as a composite of
// two price EMAs plus a signal EMA over the MACD line.
//
// line      = EMA(fast) - EMA(slow)
// signal    = EMA(signalPeriod) of line
// histogram = line - signal
//
// Not ready until the slow EMA has stabilized and the signal EMA has been
// seeded from the first signalPeriod line values.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA

	line      float64
	signalVal float64
	histogram float64
}

// NewMACD creates a MACD indicator with the given periods (typically 12, 26, 9).
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

func (m *MACD) Name() string { return "MACD" }

func (m *MACD) Update(price float64) {
	m.fast.Update(price)
	m.slow.Update(price)

	if !m.slow.Ready() {
		return
	}

	m.line = m.fast.Value() - m.slow.Value()
	m.signal.Update(m.line)

	if m.signal.Ready() {
		m.signalVal = m.signal.Value()
		m.histogram = m.line - m.signalVal
	}
}

// Value returns the MACD line. Use Line/Signal/Histogram for the full triple.
func (m *MACD) Value() float64 { return m.line }

func (m *MACD) Ready() bool { return m.slow.Ready() && m.signal.Ready() }

func (m *MACD) Line() float64      { return m.line }
func (m *MACD) Signal() float64    { return m.signalVal }
func (m *MACD) Histogram() float64 { return m.histogram }
