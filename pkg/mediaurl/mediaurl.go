// Package mediaurl holds the string-surgery conventions shared between the
// catalog and the media service: public-identifier derivation and thumbnail
// URL construction. Both are contracts against already-stored data, so the
// exact rules here must not change even where they look fragile (filenames
// containing extra dots, query strings).
package mediaurl

import (
	"fmt"
	"strings"
)

const uploadMarker = "/upload/"

// PublicID derives the stable identifier of a media object from its URL:
// the substring after the last path separator, with everything from the
// last dot onward dropped. The same derivation runs at save time and at
// delete time; that is what lets a deletion find the object a save created.
func PublicID(url string) string {
	name := url
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	return name
}

// ThumbnailURL derives a resized variant of a stored image URL by inserting
// the transformation directive right after the upload path marker. c_auto
// fits the image to the requested box, g_auto centers on the subject.
func ThumbnailURL(imageURL string, width, height int) string {
	directive := fmt.Sprintf("%sw_%d,h_%d,c_auto,g_auto/", uploadMarker, width, height)
	return strings.ReplaceAll(imageURL, uploadMarker, directive)
}
