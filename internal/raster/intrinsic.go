package raster

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"svgrender/internal/domain"
)

// CSS absolute lengths in px. em/ex assume a 16px font.
var unitToPx = map[string]float64{
	"":   1,
	"px": 1,
	"pt": 96.0 / 72.0,
	"pc": 16,
	"mm": 96 / 25.4,
	"cm": 96 / 2.54,
	"in": 96,
	"em": 16,
	"ex": 8,
}

var lengthRe = regexp.MustCompile(`^\s*([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)`)

// Size is an intrinsic document size in CSS px.
type Size struct {
	Width  float64
	Height float64
}

// rootTag is the document's root start tag and its byte span.
type rootTag struct {
	elem        xml.StartElement
	start, end  int64
	selfClosing bool
}

func (r rootTag) attr(local string) string {
	for _, a := range r.elem.Attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// IntrinsicSize reads the root <svg> element and resolves its width and
// height. Absent attribute sizes fall back to the viewBox, whose user units
// are taken as px.
func IntrinsicSize(svg []byte) (Size, error) {
	root, err := readRoot(svg)
	if err != nil {
		return Size{}, err
	}
	return root.size()
}

func (r rootTag) size() (Size, error) {
	w := parseLength(r.attr("width"))
	h := parseLength(r.attr("height"))
	vbW, vbH, hasViewBox := parseViewBox(r.attr("viewBox"))

	switch {
	case w > 0 && h > 0:
	case hasViewBox && w > 0:
		h = w * vbH / vbW
	case hasViewBox && h > 0:
		w = h * vbW / vbH
	case hasViewBox:
		w, h = vbW, vbH
	}

	if w <= 0 || h <= 0 {
		return Size{}, domain.New(domain.KindRenderFailed, "SVG has no usable intrinsic size or viewBox")
	}
	return Size{Width: w, Height: h}, nil
}

func readRoot(svg []byte) (rootTag, error) {
	if len(bytes.TrimSpace(svg)) == 0 {
		return rootTag{}, domain.New(domain.KindRenderFailed, "SVG document is empty")
	}

	dec := xml.NewDecoder(bytes.NewReader(svg))
	dec.Strict = false
	for {
		start := dec.InputOffset()
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			return rootTag{}, domain.New(domain.KindRenderFailed, "document has no root element")
		}
		if err != nil {
			return rootTag{}, domain.Wrap(domain.KindRenderFailed, err, "malformed SVG markup")
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "svg" {
			return rootTag{}, domain.New(domain.KindRenderFailed, "root element is <%s>, not <svg>", se.Name.Local)
		}
		end := dec.InputOffset()
		return rootTag{
			elem:        se.Copy(),
			start:       start,
			end:         end,
			selfClosing: bytes.HasSuffix(bytes.TrimRight(svg[start:end], " \t\r\n"), []byte("/>")),
		}, nil
	}
}

// normalizeRoot rewrites the root tag so width and height are plain px
// numbers and a viewBox is present. Drawing engines then only need to map
// the viewBox onto the target canvas.
func normalizeRoot(svg []byte) ([]byte, Size, error) {
	root, err := readRoot(svg)
	if err != nil {
		return nil, Size{}, err
	}
	size, err := root.size()
	if err != nil {
		return nil, Size{}, err
	}

	var tag bytes.Buffer
	tag.WriteString("<")
	tag.WriteString(qualified(root.elem.Name))
	for _, a := range root.elem.Attr {
		if a.Name.Space == "" && (a.Name.Local == "width" || a.Name.Local == "height") {
			continue
		}
		writeAttr(&tag, qualified(a.Name), a.Value)
	}
	writeAttr(&tag, "width", formatPx(size.Width))
	writeAttr(&tag, "height", formatPx(size.Height))
	if _, _, ok := parseViewBox(root.attr("viewBox")); !ok {
		writeAttr(&tag, "viewBox", "0 0 "+formatPx(size.Width)+" "+formatPx(size.Height))
	}
	if root.selfClosing {
		tag.WriteString("/>")
	} else {
		tag.WriteString(">")
	}

	out := make([]byte, 0, len(svg)+tag.Len())
	out = append(out, svg[:root.start]...)
	out = append(out, tag.Bytes()...)
	out = append(out, svg[root.end:]...)
	return out, size, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func writeAttr(buf *bytes.Buffer, name, value string) {
	buf.WriteString(" ")
	buf.WriteString(name)
	buf.WriteString(`="`)
	_ = xml.EscapeText(buf, []byte(value))
	buf.WriteString(`"`)
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseLength converts an SVG length to px. Percentages and garbage give 0.
func parseLength(raw string) float64 {
	m := lengthRe.FindStringSubmatchIndex(raw)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(raw[m[2]:m[3]], 64)
	if err != nil {
		return 0
	}
	unit := strings.ToLower(strings.TrimSpace(raw[m[1]:]))
	if strings.HasSuffix(unit, "%") {
		return 0
	}
	if f, ok := unitToPx[unit]; ok {
		return v * f
	}
	return v
}

func parseViewBox(raw string) (w, h float64, ok bool) {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(parts) != 4 {
		return 0, 0, false
	}
	w, errW := strconv.ParseFloat(parts[2], 64)
	h, errH := strconv.ParseFloat(parts[3], 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
