package metadata

import (
	"os"

	"github.com/dhowden/tag"
)

// MediaTags holds container metadata read from audio and MP4 files.
type MediaTags struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Genre  string `json:"genre,omitempty"`
	Year   int    `json:"year,omitempty"`
}

// ReadTags extracts ID3/MP4/Vorbis metadata from the file at path.
func ReadTags(path string) (MediaTags, error) {
	file, err := os.Open(path)
	if err != nil {
		return MediaTags{}, err
	}
	defer file.Close()

	m, err := tag.ReadFrom(file)
	if err != nil {
		return MediaTags{}, err
	}
	return MediaTags{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Genre:  m.Genre(),
		Year:   m.Year(),
	}, nil
}

// Empty reports whether no field was populated.
func (m MediaTags) Empty() bool {
	return m == MediaTags{}
}
