package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"saysh/internal/actions"
)

// UserVocabulary is the parsed user mapping file.
type UserVocabulary struct {
	Mappings map[string]actions.ID
	// Actions are user-defined actions with the argv they run.
	Actions map[actions.ID][]string
	// Warnings lists entries that were skipped.
	Warnings []string
}

type vocabularyFile struct {
	CommandMappings map[string]string   `yaml:"command_mappings"`
	CustomActions   map[string][]string `yaml:"custom_actions"`
}

// LoadVocabulary reads a `command_mappings: {phrase: action}` file, with an
// optional `custom_actions: {action: [argv...]}` table. YAML and JSON both
// parse. A missing file returns an error satisfying
// os.IsNotExist / errors.Is(err, fs.ErrNotExist).
func LoadVocabulary(path string) (*UserVocabulary, error) {
	v := &UserVocabulary{
		Mappings: make(map[string]actions.ID),
		Actions:  make(map[actions.ID][]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	var f vocabularyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return v, fmt.Errorf("failed to parse vocabulary %s: %w", path, err)
	}

	phrases := make([]string, 0, len(f.CommandMappings))
	for p := range f.CommandMappings {
		phrases = append(phrases, p)
	}
	sort.Strings(phrases)

	for _, p := range phrases {
		id := actions.Normalize(f.CommandMappings[p])
		switch {
		case p == "" || id == "":
			v.Warnings = append(v.Warnings, fmt.Sprintf("skipping empty mapping %q: %q", p, f.CommandMappings[p]))
		case id.IsTerminal():
			v.Warnings = append(v.Warnings, fmt.Sprintf("skipping %q: %s is not an executable action", p, id))
		default:
			v.Mappings[p] = id
		}
	}

	for name, argv := range f.CustomActions {
		id := actions.Normalize(name)
		switch {
		case id == "" || len(argv) == 0 || argv[0] == "":
			v.Warnings = append(v.Warnings, fmt.Sprintf("skipping custom action %q: no command given", name))
		case id.IsTerminal():
			v.Warnings = append(v.Warnings, fmt.Sprintf("skipping custom action %q: reserved name", name))
		default:
			v.Actions[id] = argv
		}
	}
	sort.Strings(v.Warnings)
	return v, nil
}
