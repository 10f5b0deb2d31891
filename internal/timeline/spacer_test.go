package timeline

import "testing"

func checkSpacing(t *testing.T, out []float64, minTop, maxTop, gap float64) {
	t.Helper()
	const eps = 1e-9
	for i, v := range out {
		if v < minTop-eps || v > maxTop+eps {
			t.Errorf("out[%d] = %v outside [%v,%v]", i, v, minTop, maxTop)
		}
		if i > 0 && out[i]-out[i-1] < gap-eps {
			t.Errorf("gap %d-%d = %v < %v", i-1, i, out[i]-out[i-1], gap)
		}
	}
}

func TestApplyMinGap(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		desired []float64
		want    []float64
	}{
		{"already spaced", []float64{14, 50, 100}, []float64{14, 50, 100}},
		{"cluster pushed down", []float64{14, 14, 14}, []float64{14, 28, 42}},
		{"overflow pulled back up", []float64{100, 126, 126}, []float64{98, 112, 126}},
		{"below min clamped", []float64{-10, 0}, []float64{14, 28}},
		{"single", []float64{500}, []float64{126}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ApplyMinGap(tt.desired, 14, 126, 14)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d", len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
			checkSpacing(t, got, 14, 126, 14)
		})
	}
}

func TestApplyMinGap_Infeasible(t *testing.T) {
	t.Parallel()
	// nine items cannot keep a 14px gap inside 100px; bounds and order still hold
	desired := make([]float64, 9)
	got := ApplyMinGap(desired, 0, 100, 14)
	for i := range got {
		if got[i] < 0 || got[i] > 100 {
			t.Fatalf("out of bounds: %v", got)
		}
		if i > 0 && got[i] < got[i-1] {
			t.Fatalf("order inverted: %v", got)
		}
	}
	if ApplyMinGap(nil, 0, 1, 1) != nil {
		t.Error("empty input should give nil")
	}
}

func TestApplyMinGap_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	in := []float64{14, 14}
	ApplyMinGap(in, 14, 126, 14)
	if in[1] != 14 {
		t.Error("input slice was modified")
	}
}
