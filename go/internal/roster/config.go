package roster

import (
	"fmt"
	"os"

	"github.com/mcdev12/liveballot/go/internal/models"
	"gopkg.in/yaml.v3"
)

// File is the ballot section of a YAML config file
type File struct {
	Roster struct {
		Candidates []models.Candidate `yaml:"candidates"`
	} `yaml:"roster"`
}

// Load reads candidates from the YAML file at path. An empty path or an empty
// candidate list yields DefaultCandidates.
func Load(path string) ([]models.Candidate, error) {
	if path == "" {
		return DefaultCandidates(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse roster file: %w", err)
	}

	if len(file.Roster.Candidates) == 0 {
		return DefaultCandidates(), nil
	}
	if err := Validate(file.Roster.Candidates); err != nil {
		return nil, err
	}
	return file.Roster.Candidates, nil
}

// Validate checks that ids are positive and unique and names are set
func Validate(candidates []models.Candidate) error {
	seen := make(map[int]bool, len(candidates))
	for _, c := range candidates {
		if c.ID <= 0 {
			return fmt.Errorf("candidate %q: id must be positive", c.Name)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate candidate id %d", c.ID)
		}
		if c.Name == "" {
			return fmt.Errorf("candidate %d: name is required", c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}
