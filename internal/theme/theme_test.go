package theme

import (
	"image/color"
	"strings"
	"testing"
)

func TestParseOverridesDefaults(t *testing.T) {
	th, err := Parse(strings.NewReader(`
Name: Mine
selectionborder: #FF0000
SelectionFill: #00FF0080
Unknown: #123456
`))
	if err != nil {
		t.Fatal(err)
	}
	if th.Name != "Mine" {
		t.Errorf("name %q", th.Name)
	}
	if th.SelectionBorder != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("border %v", th.SelectionBorder)
	}
	if th.SelectionFill != (color.RGBA{0, 255, 0, 128}) {
		t.Errorf("fill %v", th.SelectionFill)
	}
	if th.Background != Default().Background {
		t.Error("unset keys must keep defaults")
	}
}

func TestParseRejectsBadColour(t *testing.T) {
	if _, err := Parse(strings.NewReader("Background: red")); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ParseColor("#12345"); err == nil {
		t.Fatal("expected length error")
	}
}

func TestHexRoundTrip(t *testing.T) {
	for _, c := range []color.RGBA{{1, 2, 3, 255}, {0xAB, 0xCD, 0xEF, 0x10}} {
		got, err := ParseColor(Hex(c))
		if err != nil || got != c {
			t.Errorf("round trip %v -> %q -> %v (%v)", c, Hex(c), got, err)
		}
	}
}

func TestLoadEmbedded(t *testing.T) {
	l := &Loader{}
	for _, name := range []string{"dark", "Light"} {
		th, err := l.Load(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !strings.EqualFold(th.Name, name) {
			t.Errorf("loaded %q for %q", th.Name, name)
		}
	}
	if _, err := l.Load("no-such-theme"); err == nil {
		t.Fatal("expected error for unknown theme")
	}
	th, _ := l.Load("")
	if th.Name != "Default" {
		t.Fatalf("empty name gave %q", th.Name)
	}
}

func TestFieldsListsColours(t *testing.T) {
	f := Fields(Default())
	if len(f) == 0 || f[0][0] != "Background" || f[0][1] != "#F8F9FA" {
		t.Fatalf("fields %v", f)
	}
}
