package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jask/moneyboard/internal/database/repository"
	"github.com/jask/moneyboard/internal/simplefin"
)

var ErrEmptyDisplayName = errors.New("display name must not be empty")

// TokenClaimer exchanges a one-time setup token for an access URL.
type TokenClaimer interface {
	Claim(ctx context.Context, setupToken string) (string, error)
}

// SettingsService owns the single user_config row.
type SettingsService struct {
	Config  *repository.UserConfigRepo
	Claimer TokenClaimer
	Log     zerolog.Logger
}

func (s *SettingsService) Get(ctx context.Context) (repository.UserConfig, error) {
	return s.Config.Get(ctx)
}

func (s *SettingsService) SetDisplayName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyDisplayName
	}
	return s.Config.SetDisplayName(ctx, name)
}

func (s *SettingsService) SetAutoCategorize(ctx context.Context, on bool) error {
	return s.Config.SetAutoCategorize(ctx, on)
}

func (s *SettingsService) SetAutoMarkDuplicates(ctx context.Context, on bool) error {
	return s.Config.SetAutoMarkDuplicates(ctx, on)
}

// ConnectSimpleFIN claims setupToken and stores the resulting access URL.
// The URL itself is never logged.
func (s *SettingsService) ConnectSimpleFIN(ctx context.Context, setupToken string) error {
	accessURL, err := s.Claimer.Claim(ctx, strings.TrimSpace(setupToken))
	if err != nil {
		return err
	}
	if err := s.Config.SetSimpleFINURL(ctx, accessURL); err != nil {
		return err
	}
	s.Log.Info().Msg("simplefin connected")
	return nil
}

// SetAccessURL stores an access URL obtained out of band.
func (s *SettingsService) SetAccessURL(ctx context.Context, accessURL string) error {
	accessURL = strings.TrimSpace(accessURL)
	if _, err := simplefin.ParseAccessURL(accessURL); err != nil {
		return err
	}
	return s.Config.SetSimpleFINURL(ctx, accessURL)
}

// Delete forgets every setting, including the stored access URL.
func (s *SettingsService) Delete(ctx context.Context) error {
	if err := s.Config.Delete(ctx); err != nil {
		return err
	}
	s.Log.Info().Msg("user config deleted")
	return nil
}
