package metadata

import (
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// ExifInfo holds the subset of EXIF data forwarded with an upload.
type ExifInfo struct {
	Description string  `json:"description,omitempty"`
	CameraMake  string  `json:"cameraMake,omitempty"`
	CameraModel string  `json:"cameraModel,omitempty"`
	TakenAt     string  `json:"takenAt,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// ReadExif extracts EXIF fields from the image at path. Missing tags are
// simply absent; only a completely unreadable header is an error.
func ReadExif(path string) (ExifInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return ExifInfo{}, err
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return ExifInfo{}, err
	}

	var info ExifInfo
	if tag, err := x.Get(exif.ImageDescription); err == nil {
		if s, err := tag.StringVal(); err == nil {
			info.Description = s
		}
	}
	if tag, err := x.Get(exif.Make); err == nil {
		if s, err := tag.StringVal(); err == nil {
			info.CameraMake = s
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if s, err := tag.StringVal(); err == nil {
			info.CameraModel = s
		}
	}
	if taken, err := x.DateTime(); err == nil {
		info.TakenAt = taken.UTC().Format("2006-01-02T15:04:05Z")
	}
	if lat, long, err := x.LatLong(); err == nil {
		info.Latitude = lat
		info.Longitude = long
	}
	return info, nil
}

// Empty reports whether no field was populated.
func (e ExifInfo) Empty() bool {
	return e == ExifInfo{}
}
