package procedural

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"
)

// Pattern names a procedural renderer.
type Pattern string

const (
	PatternGeometric Pattern = "geometric"
	PatternFractal   Pattern = "fractal"
	PatternMosaic    Pattern = "mosaic"
	PatternNoise     Pattern = "noise-pattern"
)

// Patterns lists every pattern in catalog order.
var Patterns = []Pattern{PatternGeometric, PatternFractal, PatternMosaic, PatternNoise}

type renderFunc func(img *image.RGBA, rng *rand.Rand, palette []color.RGBA, complexity int)

var renderers = map[Pattern]renderFunc{
	PatternGeometric: renderGeometric,
	PatternFractal:   renderFractal,
	PatternMosaic:    renderMosaic,
	PatternNoise:     renderNoise,
}

func newPalette(rng *rand.Rand, n int) []color.RGBA {
	palette := make([]color.RGBA, n)
	hue := rng.Float64() * 360
	for i := range palette {
		palette[i] = hsl((hue+float64(i)*360/float64(n)), 0.65, 0.55)
	}
	return palette
}

func renderGeometric(img *image.RGBA, rng *rand.Rand, palette []color.RGBA, complexity int) {
	b := img.Bounds()
	fill(img, b, palette[0])
	shapes := complexity * 4
	for i := 0; i < shapes; i++ {
		c := palette[rng.IntN(len(palette))]
		cx, cy := rng.IntN(b.Dx()), rng.IntN(b.Dy())
		r := 8 + rng.IntN(max(b.Dx()/6, 9))
		if rng.IntN(2) == 0 {
			fill(img, image.Rect(cx-r, cy-r, cx+r, cy+r).Intersect(b), c)
			continue
		}
		for y := max(cy-r, 0); y < min(cy+r, b.Dy()); y++ {
			for x := max(cx-r, 0); x < min(cx+r, b.Dx()); x++ {
				if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r {
					img.SetRGBA(x, y, c)
				}
			}
		}
	}
}

func renderFractal(img *image.RGBA, rng *rand.Rand, palette []color.RGBA, complexity int) {
	b := img.Bounds()
	iterations := 16 * complexity
	cx := -0.75 + (rng.Float64()-0.5)*0.2
	cy := (rng.Float64() - 0.5) * 0.2
	scale := 3.0 / float64(b.Dx())

	for py := 0; py < b.Dy(); py++ {
		for px := 0; px < b.Dx(); px++ {
			x0 := cx + (float64(px)-float64(b.Dx())/2)*scale
			y0 := cy + (float64(py)-float64(b.Dy())/2)*scale
			x, y := 0.0, 0.0
			i := 0
			for ; i < iterations && x*x+y*y <= 4; i++ {
				x, y = x*x-y*y+x0, 2*x*y+y0
			}
			if i == iterations {
				img.SetRGBA(px, py, color.RGBA{A: 255})
				continue
			}
			img.SetRGBA(px, py, palette[i%len(palette)])
		}
	}
}

func renderMosaic(img *image.RGBA, rng *rand.Rand, palette []color.RGBA, complexity int) {
	b := img.Bounds()
	tile := max(b.Dx()/(complexity*4), 4)
	for y := 0; y < b.Dy(); y += tile {
		for x := 0; x < b.Dx(); x += tile {
			c := palette[rng.IntN(len(palette))]
			fill(img, image.Rect(x+1, y+1, x+tile-1, y+tile-1).Intersect(b), c)
		}
	}
}

func renderNoise(img *image.RGBA, rng *rand.Rand, palette []color.RGBA, complexity int) {
	b := img.Bounds()
	freq := float64(complexity) / float64(b.Dx()) * 2 * math.Pi
	phase := rng.Float64() * 2 * math.Pi
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := math.Sin(float64(x)*freq+phase) + math.Cos(float64(y)*freq*1.3+phase) + rng.Float64()*0.4
			idx := int((v + 2.4) / 4.8 * float64(len(palette)))
			img.SetRGBA(x, y, palette[min(max(idx, 0), len(palette)-1)])
		}
	}
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func hsl(h, s, l float64) color.RGBA {
	h = math.Mod(h, 360) / 360
	q := l * (1 + s)
	if l >= 0.5 {
		q = l + s - l*s
	}
	p := 2*l - q
	conv := func(t float64) uint8 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(v * 255))
	}
	return color.RGBA{R: conv(h + 1.0/3), G: conv(h), B: conv(h - 1.0/3), A: 255}
}
