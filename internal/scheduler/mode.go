package scheduler

import (
	"sync"

	"espanews/internal/logger"
	"espanews/internal/storage"
)

// Mode selects what happens to posts that pass validation: auto plans them
// into the publication window, manual sends each to the admin for review.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeAuto   Mode = "auto"
)

type modeFile struct {
	Mode Mode `json:"mode"`
}

// ModeStore persists the publication mode across restarts. The safe default
// is manual: nothing goes out unreviewed until an admin opts in.
type ModeStore struct {
	path string
	mu   sync.RWMutex
	mode Mode
}

func NewModeStore(path string) *ModeStore {
	s := &ModeStore{path: path, mode: ModeManual}

	var f modeFile
	if err := storage.ReadJSON(path, &f); err != nil {
		logger.Warn("mode file read failed, defaulting to manual", "path", path, "error", err)
		return s
	}
	if f.Mode == ModeAuto || f.Mode == ModeManual {
		s.mode = f.Mode
	}
	return s
}

func (s *ModeStore) Get() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Set switches the mode and writes it through to disk.
func (s *ModeStore) Set(mode Mode) {
	if mode != ModeAuto && mode != ModeManual {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
	if err := storage.WriteJSON(s.path, modeFile{Mode: mode}); err != nil {
		logger.Error("mode file write failed", "path", s.path, "error", err)
	}
}
