package emotions

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-affect/pkg/model"
)

//go:embed data/*.json
var embeddedProfiles embed.FS

// LoadEmbedded loads the built-in profile for e.
func LoadEmbedded(e model.Emotion) (*Profile, error) {
	filename := fmt.Sprintf("data/%s.json", e)
	data, err := embeddedProfiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, e)
	}
	return parseProfileJSON(e.String(), data)
}

// LoadFromFile loads a profile from a JSON file on disk. The emotion comes
// from the file's "emotion" field, falling back to the file name.
func LoadFromFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	return parseProfileJSON(name, data)
}

// LoadFromDirectory loads every *.json profile in dir.
func LoadFromDirectory(dir string) ([]*Profile, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}

	var profiles []*Profile
	for _, file := range files {
		p, err := LoadFromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// ListEmbedded returns the emotions that have a built-in profile.
func ListEmbedded() ([]model.Emotion, error) {
	entries, err := embeddedProfiles.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded profiles: %w", err)
	}

	var out []model.Emotion
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		e, err := model.ParseEmotion(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// profileFile mirrors Profile with the emotion as an optional string.
type profileFile struct {
	Profile
	Emotion string `json:"emotion"`
}

func parseProfileJSON(name string, data []byte) (*Profile, error) {
	var raw profileFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidProfile, name, err)
	}
	if raw.Emotion == "" {
		raw.Emotion = name
	}
	e, err := model.ParseEmotion(raw.Emotion)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	p := raw.Profile
	p.Emotion = e
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
