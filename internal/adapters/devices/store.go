// Package devices persists the user's last device selection.
package devices

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Store reads and writes a YAML file holding audio_input, audio_output and
// video_input. A missing file means nothing was selected yet.
type Store struct {
	path string

	mu     sync.Mutex
	loaded bool
	sel    domain.DeviceSelection
}

var _ core.DeviceSource = (*Store)(nil)

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) AudioInput(ctx context.Context) (string, error) {
	sel, err := s.Selection(ctx)
	return sel.AudioInput, err
}

func (s *Store) AudioOutput(ctx context.Context) (string, error) {
	sel, err := s.Selection(ctx)
	return sel.AudioOutput, err
}

func (s *Store) VideoInput(ctx context.Context) (string, error) {
	sel, err := s.Selection(ctx)
	return sel.VideoInput, err
}

// Selection loads the file once and returns the stored selection.
func (s *Store) Selection(ctx context.Context) (domain.DeviceSelection, error) {
	if err := ctx.Err(); err != nil {
		return domain.DeviceSelection{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.sel, nil
	}

	v := s.viper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return domain.DeviceSelection{}, fmt.Errorf("read devices: %w", err)
		}
		log.Debug().Str("module", "adapters.devices").Str("path", s.path).Msg("no stored devices")
	}
	var sel domain.DeviceSelection
	if err := v.Unmarshal(&sel); err != nil {
		return domain.DeviceSelection{}, fmt.Errorf("parse devices: %w", err)
	}
	s.sel, s.loaded = sel, true
	return sel, nil
}

// Save replaces the stored selection.
func (s *Store) Save(sel domain.DeviceSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.viper()
	v.Set("audio_input", sel.AudioInput)
	v.Set("audio_output", sel.AudioOutput)
	v.Set("video_input", sel.VideoInput)
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write devices: %w", err)
	}
	s.sel, s.loaded = sel, true
	log.Info().Str("module", "adapters.devices").Str("path", s.path).Msg("devices saved")
	return nil
}

func (s *Store) viper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(s.path)
	v.SetDefault("audio_input", "")
	v.SetDefault("audio_output", "")
	v.SetDefault("video_input", "")
	return v
}
