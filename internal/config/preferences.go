package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/rhythm/internal/models"
)

// ReadPreferences parses YAML preferences. Missing fields take their
// defaults and the result is validated.
func ReadPreferences(r io.Reader) (models.Preferences, error) {
	var prefs models.Preferences
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&prefs); err != nil {
		return models.Preferences{}, fmt.Errorf("failed to parse preferences: %w", err)
	}
	models.ApplyDefaultPreferences(&prefs)
	if err := prefs.Validate(); err != nil {
		return models.Preferences{}, err
	}
	return prefs, nil
}

func ImportPreferences(path string) (models.Preferences, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Preferences{}, err
	}
	defer f.Close()
	return ReadPreferences(f)
}

// WritePreferences encodes prefs as YAML.
func WritePreferences(w io.Writer, prefs models.Preferences) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(prefs); err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	return enc.Close()
}
