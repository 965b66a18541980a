package recorder

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrReleased = errors.New("recorder: clip released")

// Clip is an encoded recording. Its bytes live until Release.
type Clip struct {
	ID       uuid.UUID
	MIMEType string
	Duration time.Duration

	mu   sync.Mutex
	data []byte
}

func newClip(data []byte, mime string, d time.Duration) *Clip {
	return &Clip{ID: uuid.New(), MIMEType: mime, Duration: d, data: data}
}

// URL is a stable handle for the clip.
func (c *Clip) URL() string {
	return "clip:" + c.ID.String()
}

// Bytes returns the encoded data, or nil once released.
func (c *Clip) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

func (c *Clip) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *Clip) WriteTo(w io.Writer) (int64, error) {
	data := c.Bytes()
	if data == nil {
		return 0, ErrReleased
	}
	return bytes.NewReader(data).WriteTo(w)
}

// Release drops the encoded bytes. It is safe to call more than once.
func (c *Clip) Release() {
	c.mu.Lock()
	c.data = nil
	c.mu.Unlock()
}

func (c *Clip) Released() bool {
	return c.Bytes() == nil
}
