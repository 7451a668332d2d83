// Package domain holds the data model and error taxonomy shared by the
// render pipeline. It has no transport or infrastructure dependencies.
package domain

import "time"

// ObjectPrefix is the key prefix every rendered PNG is stored under.
const ObjectPrefix = "renders"

// RenderRequest is the body of POST /render.
type RenderRequest struct {
	SVGURL string `json:"svg_url"`
}

// FetchedDocument is the raw remote SVG. It is never persisted.
type FetchedDocument struct {
	Bytes     []byte
	ByteCount int64
}

// RasterResult is the encoded PNG and its pixel size.
type RasterResult struct {
	PNG    []byte
	Width  int
	Height int
}

// StoredObject is an object as reported by the store.
type StoredObject struct {
	Name      string
	CreatedAt time.Time
	SizeBytes int64
}

// ObjectAge pairs a stored object with its age at listing time.
type ObjectAge struct {
	Object StoredObject
	Age    time.Duration
}

// SignedURL grants temporary read access to one object.
type SignedURL struct {
	URL       string
	ExpiresAt time.Time
}

// Dimensions is the pixel size of a rendered PNG.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RenderResponse is the 200 body of POST /render.
type RenderResponse struct {
	PNGURL      string     `json:"png_url"`
	ObjectName  string     `json:"object_name"`
	Dimensions  Dimensions `json:"dimensions"`
	PrunedFiles int        `json:"pruned_files"`
	ExpiresAt   time.Time  `json:"expires_at"`
}
