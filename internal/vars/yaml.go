package vars

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funnyzak/reqkit/pkg/request"
)

// exportDoc is the YAML layout for environment files.
type exportDoc struct {
	Globals      map[string]string            `yaml:"globals,omitempty"`
	Environments map[string]map[string]string `yaml:"environments,omitempty"`
	Active       string                       `yaml:"active,omitempty"`
}

// ExportYAML writes globals and environments as name -> key -> value maps.
// Disabled and blank variables are left out.
func (e *Environments) ExportYAML() ([]byte, error) {
	snap := e.Snapshot()
	doc := exportDoc{
		Globals:      completeValues(snap.Globals),
		Environments: make(map[string]map[string]string, len(snap.Environments)),
	}
	for _, env := range snap.Environments {
		doc.Environments[env.Name] = completeValues(env.Variables)
	}
	if env, ok := snap.ActiveEnvironment(); ok {
		doc.Active = env.Name
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal environments: %w", err)
	}
	return out, nil
}

// ImportYAML merges a document produced by ExportYAML. Environments are
// matched by name, case-insensitively, and created when missing.
func (e *Environments) ImportYAML(data []byte) error {
	var doc exportDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse environments: %w", err)
	}

	snap := e.Snapshot()
	upsertRows(&snap.Globals, sortedPairs(doc.Globals))

	for _, name := range sortedKeys(doc.Environments) {
		if strings.TrimSpace(name) == "" {
			continue
		}
		idx := -1
		for i, env := range snap.Environments {
			if strings.EqualFold(env.Name, strings.TrimSpace(name)) {
				idx = i
				break
			}
		}
		if idx < 0 {
			snap.Environments = append(snap.Environments, request.NewEnvironment(name))
			idx = len(snap.Environments) - 1
		}
		upsertRows(&snap.Environments[idx].Variables, sortedPairs(doc.Environments[name]))
	}

	if doc.Active != "" {
		for _, env := range snap.Environments {
			if strings.EqualFold(env.Name, doc.Active) {
				snap.ActiveEnvironmentID = env.ID
			}
		}
	}
	e.Replace(snap)
	return nil
}

func completeValues(rows []request.KeyValue) map[string]string {
	out := make(map[string]string)
	for _, r := range rows {
		if r.Complete() {
			out[strings.TrimSpace(r.Key)] = r.Value
		}
	}
	return out
}

func sortedPairs(m map[string]string) [][2]string {
	pairs := make([][2]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		pairs = append(pairs, [2]string{k, m[k]})
	}
	return pairs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
