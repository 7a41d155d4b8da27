package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/immersion-engine/pkg/immersion"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
)

type ImmersionValidator struct {
	langs  []string
	errors []string
}

func (v *ImmersionValidator) validateFile(filename string) error {
	baseName := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(baseName))
	if ext != ".json" && ext != ".toml" {
		return fmt.Errorf("immersion file must have .json or .toml extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if !isValidImmersionFilename(nameWithoutExt) {
		return fmt.Errorf("immersion filename '%s' must be lowercase snake_case (e.g., old_town%s)", baseName, ext)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return v.validateData(filename, data)
}

func (v *ImmersionValidator) validateData(filename string, data []byte) error {
	v.errors = nil

	d, err := immersion.Decode(filename, data)
	if err != nil {
		return err
	}
	if strings.TrimSpace(d.Name) == "" {
		v.addError("immersion has no name")
	}
	if len(d.Waypoints) == 0 {
		v.addError("immersion has no waypoints")
	}

	langs := v.langs
	if len(langs) == 0 {
		langs = []string{immersion.FallbackLang}
	}
	for i, lang := range langs {
		im, errs := d.Build(lang)
		for _, e := range errs {
			// Structural errors do not depend on the language.
			if i == 0 {
				v.addError(e.Error())
			}
		}
		if i == 0 {
			v.validateGraph(im)
		}
		v.validateTexts(d, lang)
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *ImmersionValidator) validateGraph(im *immersion.Immersion) {
	graph := &navigation.Graph{}
	for _, w := range im.Waypoints {
		if err := graph.Add(w); err != nil {
			v.addError(err.Error())
		}
	}

	navigable := 0
	for i, w := range graph.Waypoints() {
		if w.Kind.Navigable() {
			navigable++
		}
		if w.ConnectsFrom != "" && graph.IndexOf(w.ConnectsFrom) < 0 {
			v.addError(fmt.Sprintf("waypoint %s draws a line from unknown waypoint '%s'", w.Name, w.ConnectsFrom))
		}
		if w.Kind != immersion.KindTeleporter {
			continue
		}
		if w.LinkedWaypoint == "" {
			v.addError(fmt.Sprintf("teleporter %s has no gate", w.Name))
			continue
		}
		target, idx := graph.ResolveLink(i)
		switch {
		case target == nil && w.LinkedWaypoint == immersion.LinkNext:
			v.addError(fmt.Sprintf("teleporter %s points to NEXT but is the last waypoint", w.Name))
		case target == nil:
			v.addError(fmt.Sprintf("teleporter %s points to unknown waypoint '%s'", w.Name, w.LinkedWaypoint))
		case idx == i:
			v.addError(fmt.Sprintf("teleporter %s points to itself", w.Name))
		}
	}
	if graph.Len() > 0 && navigable == 0 {
		v.addError("immersion has no navigable waypoint")
	}
	v.validateTeleporterLoops(graph)
}

// validateTeleporterLoops follows every chain of teleporters, NEXT included,
// and reports each loop once. Self loops are reported by validateGraph.
func (v *ImmersionValidator) validateTeleporterLoops(graph *navigation.Graph) {
	reported := make(map[int]bool)
	for i, w := range graph.Waypoints() {
		if w.Kind != immersion.KindTeleporter {
			continue
		}
		var path []int
		onPath := make(map[int]int)
		for cur := i; !reported[cur]; {
			if start, ok := onPath[cur]; ok {
				cycle := path[start:]
				names := make([]string, 0, len(cycle)+1)
				for _, idx := range cycle {
					reported[idx] = true
					names = append(names, graph.At(idx).Name)
				}
				if len(cycle) > 1 {
					names = append(names, names[0])
					v.addError(fmt.Sprintf("teleporters %s form a loop", strings.Join(names, " -> ")))
				}
				break
			}
			onPath[cur] = len(path)
			path = append(path, cur)
			target, next := graph.ResolveLink(cur)
			if target == nil || target.Kind != immersion.KindTeleporter {
				break
			}
			cur = next
		}
	}
}

// validateTexts reports waypoints with text entries but none for lang.
func (v *ImmersionValidator) validateTexts(d *immersion.Descriptor, lang string) {
	for _, wd := range d.Waypoints {
		if len(wd.Text) == 0 {
			continue
		}
		found := false
		for _, t := range wd.Text {
			if strings.EqualFold(t.Lang, lang) {
				found = true
				break
			}
		}
		if !found {
			v.addError(fmt.Sprintf("waypoint %s has no '%s' text", wd.ID, lang))
		}
	}
}

func (v *ImmersionValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidImmersionFilename(name string) bool {
	// Allow 'x.' prefix for experimental immersions
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
