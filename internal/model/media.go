package model

import (
	"msgkit/internal/domain"
)

// RbmMediaFile references a media file shown in RBM content. Whether Height
// is set matters: cards check it against their orientation.
type RbmMediaFile struct {
	FileURL      string             `json:"fileUrl" validate:"required,max=2048"`
	ThumbnailURL string             `json:"thumbnailUrl,omitempty" validate:"max=2048"`
	Height       domain.MediaHeight `json:"height,omitempty" validate:"omitempty,oneof=SHORT MEDIUM TALL"`
}

func NewRbmMediaFile(fileURL string) *RbmMediaFile {
	return &RbmMediaFile{FileURL: fileURL}
}

func (f *RbmMediaFile) WithThumbnail(url string) *RbmMediaFile {
	f.ThumbnailURL = url
	return f
}

func (f *RbmMediaFile) WithHeight(h domain.MediaHeight) *RbmMediaFile {
	f.Height = h
	return f
}

func (f *RbmMediaFile) HasHeight() bool {
	return f != nil && f.Height != ""
}

func (f *RbmMediaFile) Validate() error {
	return domain.Join(checkFields("RbmMediaFile", f)...)
}

func (f *RbmMediaFile) ToMap() (*Map, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	m := newMap()
	m.Set("fileUrl", f.FileURL)
	m.Set("thumbnailUrl", f.ThumbnailURL)
	m.Set("height", string(f.Height))
	return prune(m), nil
}

func RbmMediaFileFromMap(data map[string]any) (*RbmMediaFile, error) {
	f := &RbmMediaFile{
		FileURL:      stringField(data, "fileUrl"),
		ThumbnailURL: stringField(data, "thumbnailUrl"),
		Height:       domain.MediaHeight(stringField(data, "height")),
	}
	if f.Height != "" && !f.Height.Valid() {
		return nil, enumError("RbmMediaFile", "height", string(f.Height))
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// MmsMediaFile is one attachment of an MMS message. On the wire it is the
// bare URL string.
type MmsMediaFile struct {
	FileURL string `json:"fileUrl" validate:"required,max=2048"`
}

func NewMmsMediaFile(fileURL string) *MmsMediaFile {
	return &MmsMediaFile{FileURL: fileURL}
}

func (f *MmsMediaFile) Validate() error {
	return domain.Join(checkFields("MmsMediaFile", f)...)
}

// mmsMediaFromValue accepts either a URL string or a {"fileUrl": ...} object.
func mmsMediaFromValue(v any) (*MmsMediaFile, error) {
	switch x := v.(type) {
	case string:
		return NewMmsMediaFile(x), nil
	case map[string]any:
		return NewMmsMediaFile(stringField(x, "fileUrl")), nil
	}
	return nil, shapeError("Mms", "media", "a URL string", v)
}
