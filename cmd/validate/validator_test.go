package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validImmersion = `{
  "name": "Old Town",
  "waypoints": [
    {"id": "square", "type": "Stand", "position": {"x": 0, "y": 0, "z": 0}, "looking_at": {"x": 0, "y": 0, "z": 5},
     "text": [{"lang": "en", "title": "Square"}, {"lang": "fr", "title": "Place"}]},
    {"id": "gate", "type": "Teleporter", "position": {"x": 10, "y": 0, "z": 0}, "looking_at": {"x": 10, "y": 0, "z": 5}, "gate": "_NEXT"},
    {"id": "tower", "type": "Display", "position": {"x": 20, "y": 0, "z": 0}, "looking_at": {"x": 20, "y": 0, "z": 5}, "line_from": "square"}
  ]
}`

func TestImmersionValidator_ValidateData(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		data      string
		langs     []string
		wantError []string
	}{
		{name: "valid", filename: "old_town.json", data: validImmersion},
		{name: "valid in two languages", filename: "old_town.json", data: validImmersion, langs: []string{"en", "fr"}},
		{
			name:      "missing translation",
			filename:  "old_town.json",
			data:      validImmersion,
			langs:     []string{"en", "de"},
			wantError: []string{"waypoint square has no 'de' text"},
		},
		{
			name:      "broken json",
			filename:  "old_town.json",
			data:      `{"name":`,
			wantError: []string{"failed to unmarshal"},
		},
		{
			name:     "graph problems",
			filename: "old_town.json",
			data: `{"name": "Old Town", "waypoints": [
				{"id": "a", "type": "Stand"},
				{"id": "a", "type": "Stand"},
				{"id": "g", "type": "Gate", "gate": "nowhere"},
				{"id": "loop", "type": "Gate", "gate": "loop"},
				{"id": "end", "type": "Gate", "gate": "_NEXT", "line_from": "ghost"}
			]}`,
			wantError: []string{
				`duplicate waypoint name "a"`,
				"teleporter g points to unknown waypoint 'nowhere'",
				"teleporter loop points to itself",
				"teleporter end points to NEXT but is the last waypoint",
				"draws a line from unknown waypoint 'ghost'",
			},
		},
		{
			name:     "teleporter loop through next",
			filename: "old_town.json",
			data: `{"name": "Old Town", "waypoints": [
				{"id": "start", "type": "Stand"},
				{"id": "t1", "type": "Gate", "gate": "_NEXT"},
				{"id": "t2", "type": "Gate", "gate": "t1"},
				{"id": "end", "type": "Stand"}
			]}`,
			wantError: []string{"teleporters t1 -> t2 -> t1 form a loop"},
		},
		{
			name:     "teleporter chain without loop",
			filename: "old_town.json",
			data: `{"name": "Old Town", "waypoints": [
				{"id": "start", "type": "Stand"},
				{"id": "t1", "type": "Gate", "gate": "t2"},
				{"id": "t2", "type": "Gate", "gate": "_NEXT"},
				{"id": "end", "type": "Stand"}
			]}`,
		},
		{
			name:      "empty",
			filename:  "old_town.toml",
			data:      `name = ""`,
			wantError: []string{"immersion has no name", "immersion has no waypoints"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &ImmersionValidator{langs: tt.langs}
			err := v.validateData(tt.filename, []byte(tt.data))
			if len(tt.wantError) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantError {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestImmersionValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	v := &ImmersionValidator{}
	assert.NoError(t, v.validateFile(write("old_town.json", validImmersion)))
	assert.NoError(t, v.validateFile(write("x.old_town.json", validImmersion)))

	err := v.validateFile(write("OldTown.json", validImmersion))
	assert.ErrorContains(t, err, "lowercase snake_case")

	err = v.validateFile(write("old_town.yaml", validImmersion))
	assert.ErrorContains(t, err, "extension")

	err = v.validateFile(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to read file")
}
