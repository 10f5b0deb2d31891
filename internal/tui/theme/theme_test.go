package theme

import "testing"

func TestFor(t *testing.T) {
	if d := For(true); !d.Dark || d.Name != "mocha" {
		t.Errorf("For(true) = %+v", d)
	}
	if l := For(false); l.Dark || l.Name != "latte" {
		t.Errorf("For(false) = %+v", l)
	}
}

func TestDetectDarkExplicit(t *testing.T) {
	if !DetectDark("DARK") {
		t.Error("dark mode not honored")
	}
	if DetectDark("light") {
		t.Error("light mode not honored")
	}
}

func TestStylesDiffer(t *testing.T) {
	d, l := Mocha().Styles(), Latte().Styles()
	if d.UserHeader.GetForeground() == l.UserHeader.GetForeground() {
		t.Error("palettes should color user headers differently")
	}
	if !d.UserHeader.GetBold() {
		t.Error("headers should be bold")
	}
}
