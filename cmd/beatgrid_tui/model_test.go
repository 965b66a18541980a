package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/beatgrid-go"
	"github.com/cbegin/beatgrid-go/internal/audio"
	"github.com/cbegin/beatgrid-go/internal/logging"
)

func TestFocusDrivesSuspend(t *testing.T) {
	backend := audio.NewNullBackend(48000)
	m, err := beatgrid.New(beatgrid.WithBackend(backend), beatgrid.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	md := newModel(m)
	// before Initialize there is no resource manager to notify
	if _, cmd := md.Update(tea.BlurMsg{}); cmd != nil {
		t.Fatalf("blur should not schedule a command")
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	md.Update(tea.BlurMsg{})
	if !m.Resources().Suspended() || !backend.Suspended() {
		t.Fatalf("blur should suspend the device")
	}
	md.Update(tea.FocusMsg{})
	if m.Resources().Suspended() || backend.Suspended() {
		t.Fatalf("focus should resume the device")
	}
}
