package board

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KevinKickass/OpenPowerCore/internal/types"
	"gopkg.in/yaml.v3"
)

type ProfileLoader struct {
	validator *Validator
}

func NewProfileLoader() (*ProfileLoader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &ProfileLoader{validator: validator}, nil
}

// Load reads a board profile from a YAML or JSON file.
func (l *ProfileLoader) Load(path string) (*types.BoardProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board profile: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return l.ParseYAML(data)
	default:
		return l.ParseJSON(data)
	}
}

// ParseYAML converts the document to JSON so one schema covers both formats.
func (l *ProfileLoader) ParseYAML(data []byte) (*types.BoardProfile, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML profile: %w", err)
	}

	return l.ParseJSON(jsonData)
}

func (l *ProfileLoader) ParseJSON(data []byte) (*types.BoardProfile, error) {
	if err := l.validator.ValidateDocument(data); err != nil {
		return nil, err
	}

	var profile types.BoardProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	for i := range profile.Interfaces {
		if profile.Interfaces[i].Order == "" {
			profile.Interfaces[i].Order = types.InterfaceOrderUnknown
		}
	}

	if err := ValidateProfile(&profile); err != nil {
		return nil, fmt.Errorf("invalid board profile %s: %w", profile.Board.Name, err)
	}

	return &profile, nil
}
