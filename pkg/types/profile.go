// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// UserProfile describes the digest's single reader. Agents inject the
// profile into their prompts so clustering and writing reflect the
// user's interests.
type UserProfile struct {
	Name              string   `json:"name" yaml:"name"`
	Interests         []string `json:"interests" yaml:"interests"`
	Goals             []string `json:"goals" yaml:"goals"`
	PreferredLanguage string   `json:"preferred_language" yaml:"preferred_language"`
	NoteStyle         string   `json:"note_style" yaml:"note_style"`
}

// LoadProfile reads a UserProfile from a YAML file. A missing file is
// not an error: a default profile is returned so the pipeline can run
// without one.
func LoadProfile(path string) (UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return UserProfile{Name: "User", PreferredLanguage: "en", NoteStyle: "concise"}, nil
		}
		return UserProfile{}, fmt.Errorf("reading profile: %w", err)
	}
	var p UserProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return UserProfile{}, fmt.Errorf("parsing profile: %w", err)
	}
	if p.Name == "" {
		p.Name = "User"
	}
	if p.PreferredLanguage == "" {
		p.PreferredLanguage = "en"
	}
	return p, nil
}
