package beatgrid

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cbegin/beatgrid-go/internal/export"
	"github.com/cbegin/beatgrid-go/internal/recorder"
	"github.com/cbegin/beatgrid-go/internal/resource"
	"github.com/cbegin/beatgrid-go/internal/wav"
)

// PreviewHandle is the pool id used by PreviewClip and PreviewFile.
const PreviewHandle = "preview"

// PreviewClip plays a recorded clip through the preview handle. The decoded
// buffer is cached under the clip URL.
func (m *Machine) PreviewClip(c *recorder.Clip) error {
	if c == nil {
		return fmt.Errorf("preview: nil clip")
	}
	if m.Resources() == nil {
		return ErrNotReady
	}
	// a released clip must not be served from the decoded cache
	if c.Released() {
		return recorder.ErrReleased
	}
	return m.preview(c.URL(), func() ([]byte, error) {
		data := c.Bytes()
		if data == nil {
			return nil, recorder.ErrReleased
		}
		return data, nil
	})
}

// PreviewFile plays a WAV file from disk through the preview handle.
func (m *Machine) PreviewFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return m.preview("file:"+abs, func() ([]byte, error) {
		return os.ReadFile(abs)
	})
}

func (m *Machine) preview(key string, read func() ([]byte, error)) error {
	res := m.Resources()
	if res == nil {
		return ErrNotReady
	}
	buf, err := res.Cache().Load(key, func() (*resource.Buffer, error) {
		data, err := read()
		if err != nil {
			return nil, err
		}
		a, err := wav.Decode(data)
		if err != nil {
			return nil, err
		}
		return &resource.Buffer{SampleRate: a.SampleRate, Channels: a.Channels, Data: a.Data}, nil
	})
	if err != nil {
		m.log.Warn("preview failed", "op", "preview", "key", key, "err", err)
		return fmt.Errorf("preview %s: %w", key, err)
	}
	if _, err := res.PlayBuffer(PreviewHandle, buf, 1); err != nil {
		return err
	}
	m.log.Debug("preview started", "op", "preview", "key", key, "frames", buf.Frames())
	return nil
}

// StopPreview releases the preview handle back to the pool.
func (m *Machine) StopPreview() {
	if res := m.Resources(); res != nil {
		res.Pool().Release(PreviewHandle)
	}
}

// ExportArtifact snapshots the live pattern for export.
func (m *Machine) ExportArtifact() export.Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return export.NewArtifact(m.engine.Kit(), m.engine.Pattern())
}

// SaveExport writes the live pattern in format f to the export directory
// under the templated name and returns the path written.
func (m *Machine) SaveExport(f export.Format) (string, error) {
	m.mu.Lock()
	k := m.engine.Kit()
	p := m.engine.Pattern().Clone()
	dir, tmpl := m.cfg.exportDir, m.cfg.nameTemplate
	m.mu.Unlock()

	name, err := export.FileName(tmpl, export.NameData{
		KitID:   k.ID,
		KitName: k.Name,
		BPM:     int(math.Round(p.BPM())),
		Swing:   int(math.Round(p.Swing())),
		Length:  p.Length(),
		Format:  string(f),
	}, f)
	if err != nil {
		return "", err
	}
	path, err := export.WriteFile(dir, name, func(fh *os.File) error {
		switch f {
		case export.FormatMIDI:
			return export.WriteMIDI(fh, k, p)
		default:
			return export.NewArtifact(k, p).WriteJSON(fh)
		}
	})
	if err != nil {
		return "", fmt.Errorf("export %s: %w", f, err)
	}
	m.log.Info("pattern exported", "op", "export", "format", f, "path", path)
	return path, nil
}
