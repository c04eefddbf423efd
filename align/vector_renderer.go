package align

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/paulmach/orb"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// nrgbaToRGBA converts color.NRGBA to color.RGBA by premultiplying alpha
// This is needed for the canvas library which expects premultiplied RGBA
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// OverlayRenderer draws the standardized reference and the aligned target of
// a Result on top of each other. Only the first two coordinates are drawn;
// single-column data is drawn along y = 0.
type OverlayRenderer struct {
	Result         *Result
	ReferenceColor color.NRGBA
	AlignedColor   color.NRGBA
	ResidualColor  color.NRGBA
	Extent         float64           // Canvas size (mm) of one unit in standardized coordinates
	Padding        float64           // Padding in mm
	PointRadius    float64           // Marker radius in mm
	Resolution     canvas.Resolution // Resolution for PNG output (default: 300 DPI)
	ShowResiduals  bool              // Draw a segment between corresponding points
}

// NewOverlayRenderer creates an overlay renderer with default settings
func NewOverlayRenderer(r *Result) *OverlayRenderer {
	return &OverlayRenderer{
		Result:         r,
		ReferenceColor: color.NRGBA{0, 0, 139, 255},   // Dark blue
		AlignedColor:   color.NRGBA{255, 99, 71, 200}, // Tomato
		ResidualColor:  color.NRGBA{128, 128, 128, 255},
		Extent:         100.0,
		Padding:        10.0,
		PointRadius:    DefaultPointRadius,
		Resolution:     canvas.DPI(DefaultResolution),
		ShowResiduals:  true,
	}
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the overlay as an SVG to the provided writer
func (r *OverlayRenderer) RenderToSVG(w io.Writer) error {
	if r.Result == nil {
		return fmt.Errorf("no result to render")
	}
	ref, aligned, bound := r.project()
	width, height := r.size(bound)

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, ref, aligned, bound, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the overlay as a PNG with a disparity caption
func (r *OverlayRenderer) RenderToPNG(w io.Writer) error {
	if r.Result == nil {
		return fmt.Errorf("no result to render")
	}
	ref, aligned, bound := r.project()
	width, height := r.size(bound)

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, ref, aligned, bound, width, height)
	drawCaption(rast, 4, 14, fmt.Sprintf("disparity=%.6g", r.Result.Disparity))

	return png.Encode(w, rast)
}

// project extracts the drawable 2D points of both matrices and their joint bounds
func (r *OverlayRenderer) project() (orb.MultiPoint, orb.MultiPoint, orb.Bound) {
	toPoints := func(rows [][]float64) orb.MultiPoint {
		mp := make(orb.MultiPoint, len(rows))
		for i, row := range rows {
			mp[i] = orb.Point{row[0], 0}
			if len(row) > 1 {
				mp[i][1] = row[1]
			}
		}
		return mp
	}

	ref := toPoints(Rows(r.Result.Mtx1))
	aligned := toPoints(Rows(r.Result.Mtx2))
	bound := ref.Bound().Union(aligned.Bound())
	return ref, aligned, bound
}

func (r *OverlayRenderer) size(b orb.Bound) (float64, float64) {
	width := (b.Max.X()-b.Min.X())*r.Extent + 2*r.Padding
	height := (b.Max.Y()-b.Min.Y())*r.Extent + 2*r.Padding
	return width, height
}

// renderToCanvas draws background, residuals and markers (shared logic for SVG and PNG)
func (r *OverlayRenderer) renderToCanvas(renderer canvasRenderer, ref, aligned orb.MultiPoint, b orb.Bound, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(p orb.Point) (float64, float64) {
		return (p.X()-b.Min.X())*r.Extent + r.Padding, (p.Y()-b.Min.Y())*r.Extent + r.Padding
	}

	if r.ShowResiduals {
		residualStyle := canvas.DefaultStyle
		residualStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		residualStyle.Stroke = canvas.Paint{Color: nrgbaToRGBA(r.ResidualColor)}
		residualStyle.StrokeWidth = r.PointRadius / 3

		for i := range ref {
			x0, y0 := toCanvas(ref[i])
			x1, y1 := toCanvas(aligned[i])
			cp := &canvas.Path{}
			cp.MoveTo(x0, y0)
			cp.LineTo(x1, y1)
			renderer.RenderPath(cp, residualStyle, canvas.Identity)
		}
	}

	drawMarkers := func(points orb.MultiPoint, c color.NRGBA) {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: nrgbaToRGBA(c)}
		style.Stroke = canvas.Paint{Color: canvas.Transparent}
		for _, p := range points {
			cx, cy := toCanvas(p)
			renderer.RenderPath(canvas.Circle(r.PointRadius).Translate(cx, cy), style, canvas.Identity)
		}
	}
	drawMarkers(ref, r.ReferenceColor)
	drawMarkers(aligned, r.AlignedColor)
}

// drawCaption renders text onto an image at the specified pixel position
func drawCaption(img draw.Image, x, y int, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
