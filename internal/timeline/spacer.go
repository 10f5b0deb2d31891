package timeline

// ApplyMinGap spreads desired offsets so that neighbours are at least gap
// apart while staying inside [minTop, maxTop]. It runs a fixed number of
// passes: forward, then backward and forward again only when the list
// overflows, then a final clamp. Order is never inverted; if the bounds cannot
// hold every gap the clamp wins and some neighbours end up closer.
func ApplyMinGap(desired []float64, minTop, maxTop, gap float64) []float64 {
	n := len(desired)
	if n == 0 {
		return nil
	}
	if maxTop < minTop {
		maxTop = minTop
	}
	out := make([]float64, n)
	copy(out, desired)

	out[0] = clamp(out[0], minTop, maxTop)
	forward(out, gap)

	if out[n-1] > maxTop {
		out[n-1] = maxTop
		for i := n - 2; i >= 0; i-- {
			if out[i] > out[i+1]-gap {
				out[i] = out[i+1] - gap
			}
		}
		if out[0] < minTop {
			out[0] = minTop
			forward(out, gap)
		}
	}

	for i := range out {
		out[i] = clamp(out[i], minTop, maxTop)
	}
	return out
}

func forward(out []float64, gap float64) {
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1]+gap {
			out[i] = out[i-1] + gap
		}
	}
}
