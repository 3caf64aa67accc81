package markup

import "testing"

func TestDefaultPaletteValues(t *testing.T) {
	p := DefaultPalette()
	tests := map[Color]string{
		Black:        "#000000",
		Red:          "#800000",
		White:        "#C0C0C0",
		BrightBlack:  "#808080",
		BrightYellow: "#FFFF00",
	}
	for name, want := range tests {
		got, ok := p.Hex(name)
		if !ok || got != want {
			t.Errorf("Hex(%s) = %q, %v; want %q", name, got, ok, want)
		}
	}
	if _, ok := p.Hex(ColorDefault); ok {
		t.Error("default must never resolve to a palette value")
	}
	if len(p.Colors()) != 16 {
		t.Errorf("palette should list 16 colors, got %d", len(p.Colors()))
	}
}

func TestPaletteNameLookup(t *testing.T) {
	p := DefaultPalette()
	for _, c := range ANSIColors {
		hex, _ := p.Hex(c)
		if got, ok := p.Name(hex); !ok || got != c {
			t.Errorf("Name(%s) = %q, want %q", hex, got, c)
		}
	}
	if got, ok := p.Name("#c0c0c0"); !ok || got != White {
		t.Errorf("lowercase lookup = %q, %v", got, ok)
	}
}

func TestNewPaletteOverrides(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		wantErr   bool
	}{
		{"nil", nil, false},
		{"valid", map[string]string{"blue": "#1e90ff"}, false},
		{"unknown name", map[string]string{"orange": "#FFA500"}, true},
		{"default name", map[string]string{"default": "#000000"}, true},
		{"short hex", map[string]string{"red": "#F00"}, true},
		{"missing hash", map[string]string{"red": "FF0000"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPalette(tt.overrides)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPalette() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewPaletteSharedValueResolvesInANSIOrder(t *testing.T) {
	p, err := NewPalette(map[string]string{"brightRed": "#800000"})
	if err != nil {
		t.Fatalf("NewPalette: %v", err)
	}
	if got, _ := p.Name("#800000"); got != Red {
		t.Errorf("Name = %q, want %q", got, Red)
	}
	if got, _ := p.Hex(BrightRed); got != "#800000" {
		t.Errorf("Hex(brightRed) = %q", got)
	}
}
