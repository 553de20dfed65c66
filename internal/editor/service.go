// Package editor implements the editing operations of the baseline manager
// on top of the configuration and UI preference stores.
//
// Every operation is a single store mutation. Operations that break a lock or
// a listor reference fail without touching the state.
package editor

import (
	"context"

	"github.com/s3studio/baseline-manager/internal/domain"
	"github.com/s3studio/baseline-manager/pkg/log"
	"github.com/s3studio/baseline-manager/pkg/store"
)

// Service edits the configuration and UI preference stores.
type Service struct {
	conf   *store.Store[domain.ConfigurationState]
	ui     *store.Store[domain.UIState]
	logger log.Logger
}

// New creates a Service. A nil logger is replaced by a no-op logger.
func New(conf *store.Store[domain.ConfigurationState], ui *store.Store[domain.UIState], logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Service{conf: conf, ui: ui, logger: logger}
}

// Conf returns a copy of the configuration state.
func (s *Service) Conf() domain.ConfigurationState {
	return s.conf.State()
}

// UI returns a copy of the UI preferences.
func (s *Service) UI() domain.UIState {
	return s.ui.State()
}

// SetUI assigns one UI preference by its snapshot field name.
func (s *Service) SetUI(ctx context.Context, field, value string) error {
	return s.ui.Update(ctx, func(st *domain.UIState) error {
		return st.SetField(field, value)
	})
}

// ResetConf restores the default configuration.
func (s *Service) ResetConf(ctx context.Context) error {
	return s.conf.Reset(ctx)
}

// ResetUI restores the default UI preferences.
func (s *Service) ResetUI(ctx context.Context) error {
	return s.ui.Reset(ctx)
}

func (s *Service) updateConf(ctx context.Context, fn func(c *domain.ConfigurationState) error) error {
	return s.conf.Update(ctx, fn)
}
