// Package hook installs and removes hub-managed git hook scripts.
package hook

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/grafthq/graft/internal/digest"
	"github.com/grafthq/graft/internal/fsutil"
	"github.com/grafthq/graft/internal/manifest"
	"github.com/grafthq/graft/internal/marker"
)

// Installer copies hook scripts from the hub into the repository's hook
// directory, preserving pre-existing hooks via backups.
type Installer struct {
	logger *slog.Logger
}

// New creates an Installer.
func New(logger *slog.Logger) *Installer {
	return &Installer{logger: logger}
}

// Install copies each named hook from srcDir to dstDir and marks it
// executable. A pre-existing, differing destination is backed up into
// backupDir first (last writer wins, not versioned history). Hooks whose
// source and destination already match are skipped and recorded in no
// manifest entry. The returned entries carry dstDir-joined paths.
func (h *Installer) Install(srcDir, dstDir, backupDir string, files []string) ([]manifest.HookEntry, error) {
	var entries []manifest.HookEntry

	for _, name := range files {
		src := filepath.Join(srcDir, name)
		dst := filepath.Join(dstDir, name)

		if _, err := os.Stat(src); err != nil {
			if os.IsNotExist(err) {
				h.logger.Warn("hook source does not exist, skipping", "hook", name, "path", src)
				continue
			}
			return entries, fmt.Errorf("failed to stat hook source %s: %w", src, err)
		}

		equal, err := digest.FilesEqual(src, dst)
		if err != nil {
			return entries, err
		}
		if equal {
			h.logger.Info("hook already up to date, skipping", "hook", name)
			continue
		}

		action := manifest.ActionCreate
		if info, err := os.Stat(dst); err == nil {
			action = manifest.ActionReplace
			backup := filepath.Join(backupDir, name)
			// The backup keeps the displaced hook's own mode so a
			// restore puts it back exactly as it was.
			if err := fsutil.CopyFile(dst, backup, info.Mode().Perm()); err != nil {
				return entries, fmt.Errorf("failed to back up existing hook %s: %w", dst, err)
			}
			h.logger.Info("backed up existing hook", "hook", name, "backup", backup)
		}

		if err := fsutil.CopyFile(src, dst, 0o755); err != nil {
			return entries, fmt.Errorf("failed to install hook %s: %w", name, err)
		}

		hash, err := digest.File(dst)
		if err != nil {
			return entries, err
		}

		h.logger.Info("installed hook", "hook", name, "action", action, "path", dst)
		entries = append(entries, manifest.HookEntry{
			File:        dst,
			Action:      action,
			ContentHash: hash,
		})
	}

	return entries, nil
}

// Remove deletes the installed hooks recorded in entries. A hook whose
// current content no longer matches the recorded hash is skipped unless
// force is set. When restore is set and a backup exists, the backup is
// copied back into place. Entry paths are taken as written by Install.
func (h *Installer) Remove(backupDir string, entries []manifest.HookEntry, force, restore bool) error {
	for _, entry := range entries {
		name := filepath.Base(entry.File)

		hash, err := digest.File(entry.File)
		if err != nil {
			if os.IsNotExist(err) {
				h.logger.Warn("installed hook no longer exists, skipping", "hook", name)
				continue
			}
			return err
		}

		if hash != entry.ContentHash && !force {
			h.logger.Warn("hook was edited since install, skipping (use --force to remove)",
				"hook", name, "path", entry.File)
			continue
		}

		if err := os.Remove(entry.File); err != nil {
			return fmt.Errorf("failed to remove hook %s: %w", entry.File, err)
		}
		h.logger.Info("removed hook", "hook", name, "path", entry.File)

		if !restore {
			continue
		}
		backup := filepath.Join(backupDir, name)
		info, err := os.Stat(backup)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := fsutil.CopyFile(backup, entry.File, info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to restore hook backup %s: %w", backup, err)
		}
		h.logger.Info("restored pre-existing hook from backup", "hook", name)
	}

	return nil
}

// ScanManaged returns the paths of files in dir that carry the
// hub-managed sentinel line. Used by the heuristic uninstall fallback
// when no manifest exists.
func ScanManaged(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var managed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if hasSentinelLine(string(data)) {
			managed = append(managed, path)
		}
	}

	return managed, nil
}

func hasSentinelLine(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), marker.HookSentinel) {
			return true
		}
	}
	return false
}
