package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func pattern(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), uint8(x + y), 255})
		}
	}
	return img
}

func TestCompositeOnlyTouchesSelection(t *testing.T) {
	orig := pattern(200, 100)
	red := color.RGBA{255, 0, 0, 255}
	r := image.Rect(40, 20, 90, 70)
	out := Composite(orig, Fill(50, 50, red), r)
	if out.Bounds() != orig.Bounds() {
		t.Fatalf("bounds %v, want %v", out.Bounds(), orig.Bounds())
	}
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			got := out.RGBAAt(x, y)
			if image.Pt(x, y).In(r) {
				if got != red {
					t.Fatalf("inside (%d,%d) = %v", x, y, got)
				}
			} else if got != orig.RGBAAt(x, y) {
				t.Fatalf("outside (%d,%d) changed: %v", x, y, got)
			}
		}
	}
	if orig.RGBAAt(50, 30) == red {
		t.Fatal("original image was modified")
	}
}

func TestCompositeScalesRegion(t *testing.T) {
	orig := pattern(100, 100)
	blue := color.RGBA{0, 0, 255, 255}
	r := image.Rect(10, 10, 60, 40)
	out := Composite(orig, Fill(512, 512, blue), r)
	if got := out.RGBAAt(35, 25); got.B < 250 || got.R > 5 || got.G > 5 {
		t.Fatalf("centre of scaled region = %v", got)
	}
	if got := out.RGBAAt(9, 9); got != orig.RGBAAt(9, 9) {
		t.Fatalf("corner outside region changed: %v", got)
	}
	if got := out.RGBAAt(60, 40); got != orig.RGBAAt(60, 40) {
		t.Fatalf("pixel past region changed: %v", got)
	}
}

func TestCompositeClipsToImage(t *testing.T) {
	orig := pattern(50, 50)
	out := Composite(orig, Fill(40, 40, color.White), image.Rect(30, 30, 70, 70))
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 50 {
		t.Fatalf("bounds %v", out.Bounds())
	}
	if got := out.RGBAAt(30, 30); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("region corner = %v", got)
	}
	if got := out.RGBAAt(29, 29); got != orig.RGBAAt(29, 29) {
		t.Fatalf("pixel outside region changed: %v", got)
	}
}

func TestCompositeIdentityOverhangingBox(t *testing.T) {
	orig := pattern(200, 100)
	box := image.Rect(-50, -100, 250, 200)
	sub, err := Extract(orig, box)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Bounds() != image.Rect(0, 0, 300, 300) {
		t.Fatalf("extracted bounds %v", sub.Bounds())
	}
	out := Composite(orig, sub, box)
	changed := 0
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			if out.RGBAAt(x, y) != orig.RGBAAt(x, y) {
				changed++
			}
		}
	}
	if changed != 0 {
		t.Fatalf("%d of 20000 pixels changed, (0,0) = %v want %v", changed, out.RGBAAt(0, 0), orig.RGBAAt(0, 0))
	}
}

func TestExtractPadsOutsideImage(t *testing.T) {
	orig := pattern(100, 100)
	sub, err := Extract(orig, image.Rect(-10, 90, 20, 120))
	if err != nil {
		t.Fatal(err)
	}
	if sub.Bounds() != image.Rect(0, 0, 30, 30) {
		t.Fatalf("bounds %v", sub.Bounds())
	}
	if got := sub.RGBAAt(0, 0); got.A != 0 {
		t.Fatalf("padding = %v, want transparent", got)
	}
	if got := sub.RGBAAt(15, 20); got.A != 0 {
		t.Fatalf("padding below image = %v, want transparent", got)
	}
	if sub.RGBAAt(10, 0) != orig.RGBAAt(0, 90) || sub.RGBAAt(29, 9) != orig.RGBAAt(19, 99) {
		t.Fatal("overlapping pixels do not match source")
	}
}

func TestExtract(t *testing.T) {
	orig := pattern(100, 100)
	sub, err := Extract(orig, image.Rect(10, 20, 30, 50))
	if err != nil {
		t.Fatal(err)
	}
	if sub.Bounds() != image.Rect(0, 0, 20, 30) {
		t.Fatalf("bounds %v", sub.Bounds())
	}
	if sub.RGBAAt(0, 0) != orig.RGBAAt(10, 20) || sub.RGBAAt(19, 29) != orig.RGBAAt(29, 49) {
		t.Fatal("extracted pixels do not match source")
	}
	if _, err := Extract(orig, image.Rect(200, 200, 300, 300)); !errors.Is(err, ErrEmptyRegion) {
		t.Fatalf("err = %v", err)
	}
}

func TestPNGAndDataURL(t *testing.T) {
	orig := pattern(8, 4)
	data, err := EncodePNG(orig)
	if err != nil {
		t.Fatal(err)
	}
	w, h, err := Size(data)
	if err != nil || w != 8 || h != 4 {
		t.Fatalf("size %dx%d %v", w, h, err)
	}
	url := DataURL("image/png", data)
	mediaType, raw, err := ParseDataURL(url)
	if err != nil || mediaType != "image/png" || len(raw) != len(data) {
		t.Fatalf("parse: %q %d %v", mediaType, len(raw), err)
	}
	img, err := Decode([]byte(url))
	if err != nil {
		t.Fatal(err)
	}
	if img.RGBAAt(3, 2) != orig.RGBAAt(3, 2) {
		t.Fatal("decoded pixels differ")
	}
	if _, _, err := ParseDataURL("data:text/plain,hello"); err == nil {
		t.Fatal("expected error for non-base64 data url")
	}
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name, mime string
		size       int
		want       error
	}{
		{"a.png", "image/png", 1024, nil},
		{"a.webp", "", 1024, nil},
		{"a.JPG", "", 1024, nil},
		{"a.bmp", "image/bmp", 1024, ErrUnsupportedType},
		{"a.txt", "", 10, ErrUnsupportedType},
		{"a.png", "image/png", MaxUploadSize + 1, ErrTooLarge},
		{"a.png", "image/png", MaxUploadSize, nil},
	}
	for _, tt := range tests {
		if err := ValidateUpload(tt.name, tt.mime, tt.size); !errors.Is(err, tt.want) {
			t.Errorf("ValidateUpload(%q, %q, %d) = %v, want %v", tt.name, tt.mime, tt.size, err, tt.want)
		}
	}
}
