package therefore

import (
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"

	"github.com/skyleague/therefore-sub001/emit"
)

// ManifestPath is where the manifest is written, relative to the output.
const ManifestPath = "therefore.manifest.json"

// Manifest lists the files of a run and the names each one exports.
type Manifest struct {
	// Comment carries the generated marker so Clean recognises the file.
	Comment string         `json:"$comment"`
	Files   []ManifestFile `json:"files"`
}

// ManifestFile is one entry of a Manifest.
type ManifestFile struct {
	Path    string   `json:"path"`
	Dialect string   `json:"dialect"`
	Exports []string `json:"exports,omitempty"`
	Cyclic  []string `json:"cyclic,omitempty"`
}

// Manifest builds the manifest of r.
func (r *Result) Manifest() *Manifest {
	m := &Manifest{Comment: emit.BannerMarker, Files: make([]ManifestFile, 0, len(r.Files))}
	for _, f := range r.Files {
		mf := ManifestFile{Path: f.Path, Dialect: f.Dialect, Exports: f.Exports}
		for _, id := range f.Cyclic {
			mf.Cyclic = append(mf.Cyclic, string(id))
		}
		m.Files = append(m.Files, mf)
	}
	return m
}

// Marshal returns the manifest as indented JSON with a trailing newline.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal manifest")
	}
	return append(data, '\n'), nil
}

// ParseManifest decodes a manifest written by Marshal.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "parse manifest")
	}
	return &m, nil
}
