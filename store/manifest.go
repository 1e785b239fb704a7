package store

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"seals.dev/anchor/anchor"
)

const SchemaVersionV1 uint32 = 1

const manifestName = "MANIFEST.yaml"

// Manifest pins the layout of an archive. Records are stored as encoded
// anchors, so an archive written under another anchor encoding is refused
// rather than misread.
type Manifest struct {
	SchemaVersion   uint32 `yaml:"schema_version"`
	EncodingVersion uint8  `yaml:"encoding_version"`
}

func currentManifest() *Manifest {
	return &Manifest{SchemaVersion: SchemaVersionV1, EncodingVersion: anchor.EncodingVersion}
}

func (m *Manifest) check() error {
	switch {
	case m.SchemaVersion == 0:
		return errors.New("manifest: schema_version missing")
	case m.SchemaVersion > SchemaVersionV1:
		return errors.Newf("manifest: schema_version %d > supported %d", m.SchemaVersion, SchemaVersionV1)
	case m.EncodingVersion != anchor.EncodingVersion:
		return errors.Newf("manifest: encoding_version %d, this build reads %d", m.EncodingVersion, anchor.EncodingVersion)
	}
	return nil
}

func readManifest(dir string) (*Manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, manifestName)) // #nosec G304 -- dir is derived from operator-controlled datadir.
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "manifest yaml")
	}
	return &m, nil
}

// loadManifest returns the archive's manifest, creating it for a fresh
// archive, and fails when this build cannot read the archive.
func loadManifest(dir string) (*Manifest, error) {
	m, err := readManifest(dir)
	if os.IsNotExist(err) {
		m = currentManifest()
		return m, writeManifest(dir, m)
	}
	if err != nil {
		return nil, err
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// writeManifest replaces the manifest through a synced temp file in dir.
func writeManifest(dir string, m *Manifest) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "manifest yaml")
	}
	f, err := os.CreateTemp(dir, manifestName+".*")
	if err != nil {
		return errors.Wrap(err, "manifest tmp")
	}
	tmp := f.Name()
	_, err = f.Write(b)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, filepath.Join(dir, manifestName))
	}
	if err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "manifest write")
	}
	return nil
}
