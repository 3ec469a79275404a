package watchlist

// PriceMemory holds the last successfully observed price per symbol.
type PriceMemory map[string]float64

// Change returns the percentage move from the remembered price to current.
// ok is false when there is no prior price or the prior price is zero.
func (m PriceMemory) Change(symbol string, current float64) (pct float64, ok bool) {
	prev, found := m[symbol]
	if !found || prev == 0 {
		return 0, false
	}
	return (current - prev) / prev * 100, true
}

// Clone copies the memory.
func (m PriceMemory) Clone() PriceMemory {
	out := make(PriceMemory, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
