package uploadcli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"qapp_backend/internal/uploader"

	"gopkg.in/yaml.v3"
)

// Manifest describes one question paper:
//
//	title: Calculus I 2023
//	courseCode: MTH 101
//	courseName: Calculus I
//	level: 100
//	year: 2023
//	semester: First
//	hashtags: calculus, exam     # or a YAML list
//	images:                      # optional, relative to the manifest
//	  - page1.jpg
type Manifest struct {
	Title      string   `yaml:"title"`
	CourseCode string   `yaml:"courseCode"`
	CourseName string   `yaml:"courseName"`
	Level      int      `yaml:"level"`
	Year       int      `yaml:"year"`
	Semester   string   `yaml:"semester"`
	Hashtags   Hashtags `yaml:"hashtags"`
	Images     []string `yaml:"images"`

	dir string
}

// Hashtags accepts either a comma separated string or a list.
type Hashtags string

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *Hashtags) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*h = Hashtags(value.Value)
		return nil
	case yaml.SequenceNode:
		var tags []string
		if err := value.Decode(&tags); err != nil {
			return err
		}
		*h = Hashtags(strings.Join(tags, ","))
		return nil
	default:
		return fmt.Errorf("line %d: hashtags must be a string or a list", value.Line)
	}
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return &m, nil
}

// Metadata converts the manifest into upload metadata.
func (m *Manifest) Metadata() uploader.Metadata {
	return uploader.Metadata{
		Title:      m.Title,
		CourseCode: m.CourseCode,
		CourseName: m.CourseName,
		Level:      m.Level,
		Year:       m.Year,
		Semester:   m.Semester,
		Hashtags:   string(m.Hashtags),
	}
}

// ImagePaths resolves the manifest's images relative to its directory and
// appends extra paths given on the command line.
func (m *Manifest) ImagePaths(extra []string) []string {
	paths := make([]string, 0, len(m.Images)+len(extra))
	for _, p := range m.Images {
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.dir, p)
		}
		paths = append(paths, p)
	}
	return append(paths, extra...)
}
