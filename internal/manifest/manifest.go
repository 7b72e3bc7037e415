// Package manifest persists the record of everything an install run
// changed. It is the source of truth for uninstallation and must never be
// committed or hand-edited.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName is the manifest side-car file at the consuming repository root.
const FileName = ".graft-manifest.json"

// Version is the current manifest schema version.
const Version = 1

// Actions recorded for managed items.
const (
	ActionCreate  = "create"
	ActionInject  = "inject"
	ActionReplace = "replace"
)

// Entry records one managed injection. File is relative to the repository
// root; ContentHash covers exactly the rendered snippet bytes written
// between the markers, independent of surrounding user content.
// AddedNewline records that install had to terminate the file's final
// line to place the block, so uninstall can strip that byte again and
// restore the file exactly.
type Entry struct {
	File         string `json:"file"`
	Action       string `json:"action"`
	ContentHash  string `json:"content_hash"`
	Position     string `json:"position"`
	AddedNewline bool   `json:"added_newline,omitempty"`
}

// HookEntry records one installed hook. ContentHash covers the entire
// installed file, because hooks are whole-file replacements.
type HookEntry struct {
	File        string `json:"file"`
	Action      string `json:"action"`
	ContentHash string `json:"content_hash"`
}

// Manifest is the full install record for one repository.
type Manifest struct {
	Version     int         `json:"version"`
	InstalledAt time.Time   `json:"installed_at"`
	HubPath     string      `json:"hub_path"`
	Injections  []Entry     `json:"injections"`
	Hooks       []HookEntry `json:"hooks"`
}

// New builds a manifest for the given install results.
func New(hubPath string, injections []Entry, hooks []HookEntry) *Manifest {
	return &Manifest{
		Version:     Version,
		InstalledAt: time.Now().UTC(),
		HubPath:     hubPath,
		Injections:  injections,
		Hooks:       hooks,
	}
}

// Path returns the manifest location for a repository root.
func Path(root string) string {
	return filepath.Join(root, FileName)
}

// Load reads the manifest for a repository. An absent manifest returns
// (nil, nil).
func Load(root string) (*Manifest, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &m, nil
}

// Save writes the manifest wholesale, replacing any previous one. The
// write goes through a temp file and rename so an interrupted save never
// leaves a truncated manifest.
func Save(root string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(root, ".graft-manifest-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, Path(root))
}

// Remove deletes the manifest. Removing an absent manifest is not an
// error.
func Remove(root string) error {
	if err := os.Remove(Path(root)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
