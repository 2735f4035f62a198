package soft

import (
	"math"

	"github.com/Faultbox/thetawarp/internal/engine/gpu"
)

const (
	gapBands = 14
	blend    = 0.035
)

// DrawTriangles implements gpu.Context. Positions come from attribute 0 of
// the bound vertex array; every covered pixel runs shadeWarp.
func (c *Context) DrawTriangles(count int32) {
	if c.FailDraws {
		c.setErr(ErrDrawFailed)
		return
	}
	p := c.current()
	if p == nil {
		return
	}
	vao := c.vertexArrays[c.curVAO]
	if vao == nil {
		c.setErr(ErrInvalidOperation)
		return
	}
	elements := c.buffers[vao.elements]
	pos := vao.attribs[0]
	if elements == nil || pos == nil || !pos.enabled || pos.size != 2 || c.buffers[pos.buffer] == nil {
		c.setErr(ErrInvalidOperation)
		return
	}
	verts := c.buffers[pos.buffer].floats
	if int(count) > len(elements.shorts) {
		c.setErr(ErrInvalidOperation)
		return
	}
	target := c.target()
	if target == nil {
		c.setErr(ErrInvalidOperation)
		return
	}

	idx := elements.shorts[:count]
	for i := 0; i+2 < len(idx); i += 3 {
		var tri [3][2]float64
		for k := 0; k < 3; k++ {
			v := int(idx[i+k]) * 2
			if v+1 >= len(verts) {
				c.setErr(ErrInvalidOperation)
				return
			}
			tri[k] = c.toWindow(float64(verts[v]), float64(verts[v+1]))
		}
		c.fill(p, target, tri)
	}
	c.Draws++
}

func (c *Context) toWindow(x, y float64) [2]float64 {
	vp := c.viewport
	return [2]float64{
		float64(vp[0]) + (x+1)*0.5*float64(vp[2]),
		float64(vp[1]) + (y+1)*0.5*float64(vp[3]),
	}
}

func edge(a, b [2]float64, x, y float64) float64 {
	return (b[0]-a[0])*(y-a[1]) - (b[1]-a[1])*(x-a[0])
}

func (c *Context) fill(p *program, target *texture, tri [3][2]float64) {
	area := edge(tri[0], tri[1], tri[2][0], tri[2][1])
	if area == 0 {
		return
	}

	minX := math.Floor(math.Min(tri[0][0], math.Min(tri[1][0], tri[2][0])))
	maxX := math.Ceil(math.Max(tri[0][0], math.Max(tri[1][0], tri[2][0])))
	minY := math.Floor(math.Min(tri[0][1], math.Min(tri[1][1], tri[2][1])))
	maxY := math.Ceil(math.Max(tri[0][1], math.Max(tri[1][1], tri[2][1])))

	vp := c.viewport
	x0 := max(int(minX), int(vp[0]), 0)
	y0 := max(int(minY), int(vp[1]), 0)
	x1 := min(int(maxX), int(vp[0]+vp[2]), int(target.width))
	y1 := min(int(maxY), int(vp[1]+vp[3]), int(target.height))

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			cx, cy := float64(x)+0.5, float64(y)+0.5
			w0 := edge(tri[1], tri[2], cx, cy) / area
			w1 := edge(tri[2], tri[0], cx, cy) / area
			w2 := edge(tri[0], tri[1], cx, cy) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			// pos is the affine interpolation of the vertex positions,
			// which is the NDC of the pixel center.
			px := (cx-float64(vp[0]))/float64(vp[2])*2 - 1
			py := (cy-float64(vp[1]))/float64(vp[3])*2 - 1
			color := c.shadeWarp(p, px, py)
			copy(target.rgba[(y*int(target.width)+x)*4:], color[:])
		}
	}
}

// shadeWarp is the built-in warp fragment stage.
func (c *Context) shadeWarp(p *program, px, py float64) [4]float32 {
	image := c.textures[c.units[c.samplerUnit(p, "image")]]
	u, v := (px+1)*0.5, (1-py)*0.5

	if loc, ok := p.uniformNames["skip_stitch"]; ok && p.ints[loc] != 0 {
		return sample(image, u, v)
	}

	lon := px * math.Pi
	lat := py * math.Pi * 0.5
	d := rotate(p, [3]float64{math.Cos(lat) * math.Cos(lon), math.Cos(lat) * math.Sin(lon), math.Sin(lat)})

	tlon := math.Atan2(d[1], d[0])
	tlat := math.Asin(math.Max(-1, math.Min(1, d[2])))
	tu, tv := tlon/(2*math.Pi)+0.5, 0.5-tlat/math.Pi
	t := sample(c.textures[c.units[c.samplerUnit(p, "tbl")]], tu, tv)

	band := min(max(int(tv*gapBands), 0), gapBands-1)
	var gx, gy float64
	if loc, ok := p.uniformNames["gap"]; ok {
		if g := p.floats[loc]; len(g) >= (band+1)*2 {
			gx, gy = float64(g[band*2]), float64(g[band*2+1])
		}
	}

	left := sample(image, float64(t[0])*0.5+gx*0.5, float64(t[1])+gy*0.5)
	right := sample(image, 0.5+float64(t[2])*0.5-gx*0.5, float64(t[3])-gy*0.5)

	w := smoothstep(-blend, blend, d[0])
	var out [4]float32
	for i := range out {
		out[i] = float32(float64(right[i])*(1-w) + float64(left[i])*w)
	}
	return out
}

func (c *Context) samplerUnit(p *program, name string) int32 {
	loc, ok := p.uniformNames[name]
	if !ok {
		return 0
	}
	unit := p.ints[loc]
	if unit < 0 || unit >= maxTextureUnits {
		return 0
	}
	return unit
}

// rotate multiplies by the rmat uniform, honoring the transpose flag of the
// upload. Without an upload the direction passes through.
func rotate(p *program, d [3]float64) [3]float64 {
	loc, ok := p.uniformNames["rmat"]
	if !ok {
		return d
	}
	m, ok := p.floats[loc]
	if !ok || len(m) < 9 {
		return d
	}
	at := func(row, col int) float64 {
		if p.transposed[loc] {
			return float64(m[row*3+col])
		}
		return float64(m[col*3+row])
	}
	var out [3]float64
	for row := 0; row < 3; row++ {
		out[row] = at(row, 0)*d[0] + at(row, 1)*d[1] + at(row, 2)*d[2]
	}
	return out
}

func smoothstep(e0, e1, x float64) float64 {
	t := math.Max(0, math.Min(1, (x-e0)/(e1-e0)))
	return t * t * (3 - 2*t)
}

func wrap(mode gpu.Wrap, f float64) float64 {
	switch mode {
	case gpu.MirroredRepeat:
		m := f - 2*math.Floor(f/2)
		if m > 1 {
			m = 2 - m
		}
		return m
	case gpu.ClampToEdge:
		return math.Max(0, math.Min(1, f))
	default:
		return f - math.Floor(f)
	}
}

// sample is a nearest-texel lookup. A missing texture samples as opaque black.
func sample(t *texture, u, v float64) [4]float32 {
	if t == nil || !t.hasStorage {
		return [4]float32{0, 0, 0, 1}
	}
	x := int(wrap(t.wrapS, u) * float64(t.width))
	y := int(wrap(t.wrapT, v) * float64(t.height))
	x = min(max(x, 0), int(t.width)-1)
	y = min(max(y, 0), int(t.height)-1)
	i := (y*int(t.width) + x) * 4
	return [4]float32{t.rgba[i], t.rgba[i+1], t.rgba[i+2], t.rgba[i+3]}
}
