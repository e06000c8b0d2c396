package qa

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Upload is the tagged union of file attachment kinds, resolved once at the
// boundary before a query enters the pipeline.
type Upload interface {
	Filename() string
	isUpload()
}

// ImageUpload is raw image bytes handed directly to the generator's vision
// capability.
type ImageUpload struct {
	Name string
	Ext  string
	Data []byte
}

func (u *ImageUpload) Filename() string { return u.Name }
func (u *ImageUpload) isUpload()        {}

// DocumentUpload is a document whose text is extracted before prompting.
type DocumentUpload struct {
	Name string
	Ext  string
	Data []byte
}

func (u *DocumentUpload) Filename() string { return u.Name }
func (u *DocumentUpload) isUpload()        {}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".gif": true, ".tiff": true,
}

// ResolveUpload dispatches a named byte payload to its upload kind. Formats
// outside the supported set are rejected here so the pipeline never spends a
// generator call on them.
func ResolveUpload(name string, data []byte) (Upload, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExts[ext]:
		return &ImageUpload{Name: name, Ext: ext, Data: data}, nil
	case ext == ".pdf":
		return &DocumentUpload{Name: name, Ext: ext, Data: data}, nil
	default:
		return nil, fmt.Errorf("unsupported file format: %s. Please use PDF or image files (PNG, JPG, etc.)", ext)
	}
}
