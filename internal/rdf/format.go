package rdf

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/munnerz/goautoneg"
)

var ErrUnsupportedMediaType = errors.New("unsupported media type")

const (
	MediaNTriples = "application/n-triples"
	MediaJSON     = "application/json"
	MediaYAML     = "application/yaml"
)

// Format ties a media type to its codec.
type Format struct {
	Name      string
	MediaType string
	Extension string
	Decode    func([]byte) (*Graph, error)
	Encode    func(*Graph) ([]byte, error)
}

var formats = []Format{
	{Name: "ntriples", MediaType: MediaNTriples, Extension: ".nt", Decode: DecodeNTriples, Encode: EncodeNTriples},
	{Name: "json", MediaType: MediaJSON, Extension: ".json", Decode: DecodeJSON, Encode: EncodeJSON},
	{Name: "yaml", MediaType: MediaYAML, Extension: ".yaml", Decode: DecodeYAML, Encode: EncodeYAML},
}

// Other media types seen in the wild for the same serializations.
var aliases = map[string]string{
	"text/plain":          MediaNTriples,
	"application/x-yaml":  MediaYAML,
	"text/yaml":           MediaYAML,
	"application/ld+json": MediaJSON,
}

// MediaTypes lists the canonical media types in preference order.
func MediaTypes() []string {
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = f.MediaType
	}
	return out
}

// Accept returns a value for an outbound Accept header.
func Accept() string {
	types := MediaTypes()
	parts := make([]string, 0, len(types)+1)
	for i, t := range types {
		if i == 0 {
			parts = append(parts, t)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s;q=0.%d", t, 9-i))
	}
	parts = append(parts, "text/plain;q=0.5")
	return strings.Join(parts, ", ")
}

// Lookup finds the format for a Content-Type value; parameters are ignored.
func Lookup(contentType string) (Format, error) {
	mt := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mt = parsed
	}
	mt = strings.ToLower(strings.TrimSpace(mt))
	if canonical, ok := aliases[mt]; ok {
		mt = canonical
	}
	for _, f := range formats {
		if f.MediaType == mt {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, contentType)
}

// ByName finds a format by its short name (ntriples, json, yaml).
func ByName(name string) (Format, error) {
	for _, f := range formats {
		if f.Name == name {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, name)
}

// ByExtension finds a format by file extension, with or without the dot.
func ByExtension(ext string) (Format, error) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ext == ".yml" {
		ext = ".yaml"
	}
	for _, f := range formats {
		if f.Extension == ext {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, ext)
}

// Parse materializes a graph from a payload of the given content type.
func Parse(contentType string, body []byte) (*Graph, error) {
	f, err := Lookup(contentType)
	if err != nil {
		return nil, err
	}
	return f.Decode(body)
}

// Negotiate picks the response format for an Accept header. An empty
// header selects N-Triples.
func Negotiate(accept string) (Format, bool) {
	if strings.TrimSpace(accept) == "" {
		return formats[0], true
	}
	mt := goautoneg.Negotiate(accept, MediaTypes())
	if mt == "" {
		return Format{}, false
	}
	f, err := Lookup(mt)
	if err != nil {
		return Format{}, false
	}
	return f, true
}
