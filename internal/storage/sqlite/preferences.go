package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/models"
)

func (s *Store) GetPreferences() (models.Preferences, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", constants.SettingPreferences).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Preferences{}, fmt.Errorf("%w: preferences", apperrors.ErrNotFound)
	}
	if err != nil {
		return models.Preferences{}, err
	}

	var prefs models.Preferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return models.Preferences{}, fmt.Errorf("parsing preferences: %w", err)
	}
	return prefs, nil
}

func (s *Store) SavePreferences(prefs models.Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", constants.SettingPreferences, string(raw))
	return err
}
