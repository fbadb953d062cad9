package assets

import (
	"net/url"
	"path"
	"strings"
)

// Modalities that produce persisted media.
const (
	KindImage = "image"
	KindAudio = "audio"
	KindVideo = "video"
)

var extensionsByKind = map[string][]string{
	KindImage: {"png", "jpg", "jpeg", "webp", "gif"},
	KindVideo: {"mp4", "webm", "mov"},
	KindAudio: {"mp3", "wav", "ogg", "flac", "m4a", "aac"},
}

var extensionByContentType = map[string]string{
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/webp":      "webp",
	"image/gif":       "gif",
	"video/mp4":       "mp4",
	"video/webm":      "webm",
	"video/quicktime": "mov",
	"audio/mpeg":      "mp3",
	"audio/mp3":       "mp3",
	"audio/wav":       "wav",
	"audio/wave":      "wav",
	"audio/x-wav":     "wav",
	"audio/ogg":       "ogg",
	"audio/flac":      "flac",
	"audio/mp4":       "m4a",
	"audio/aac":       "aac",
}

var contentTypeByExtension = map[string]string{
	"png": "image/png", "jpg": "image/jpeg", "jpeg": "image/jpeg", "webp": "image/webp", "gif": "image/gif",
	"mp4": "video/mp4", "webm": "video/webm", "mov": "video/quicktime",
	"mp3": "audio/mpeg", "wav": "audio/wav", "ogg": "audio/ogg", "flac": "audio/flac", "m4a": "audio/mp4", "aac": "audio/aac",
}

// KindOf maps a response type to the media kind it produces. Speech and
// music are audio; anything else that is not media yields "".
func KindOf(responseType string) string {
	switch responseType {
	case KindImage:
		return KindImage
	case KindVideo:
		return KindVideo
	case KindAudio, "speech", "music":
		return KindAudio
	}
	return ""
}

// HasExtension reports whether the URL path ends in an extension that
// belongs to kind.
func HasExtension(rawURL, kind string) bool {
	ext := urlExtension(rawURL)
	if ext == "" {
		return false
	}
	for _, e := range extensionsByKind[kind] {
		if e == ext {
			return true
		}
	}
	return false
}

// IsURL reports whether s looks like an http(s) or data URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "data:")
}

func urlExtension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

func baseContentType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// extensionFor picks the object extension from the content type, then the
// source URL, then the media kind.
func extensionFor(contentType, sourceURL, kind string) string {
	if ext, ok := extensionByContentType[baseContentType(contentType)]; ok {
		return ext
	}
	if ext := urlExtension(sourceURL); ext != "" {
		if _, ok := contentTypeByExtension[ext]; ok {
			return ext
		}
	}
	switch kind {
	case KindImage:
		return "png"
	case KindAudio:
		return "mp3"
	case KindVideo:
		return "mp4"
	}
	return "bin"
}
