// Package engine orchestrates the install and uninstall lifecycle:
// content injection, hook installation, hook-path configuration, and the
// manifest that ties them together.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/grafthq/graft/internal/config"
	"github.com/grafthq/graft/internal/digest"
	"github.com/grafthq/graft/internal/fsutil"
	"github.com/grafthq/graft/internal/gitrepo"
	"github.com/grafthq/graft/internal/hook"
	"github.com/grafthq/graft/internal/inject"
	"github.com/grafthq/graft/internal/manifest"
	"github.com/grafthq/graft/internal/marker"
	"github.com/grafthq/graft/internal/template"
)

// Default locations, relative to the consuming repository root.
const (
	DefaultHooksDir  = ".graft/hooks"
	DefaultBackupDir = ".graft/backup"
)

// wellKnownFiles are scanned for marked regions by the heuristic
// uninstall fallback when no manifest exists.
var wellKnownFiles = []string{
	"AGENTS.md",
	"CLAUDE.md",
	"README.md",
	"Makefile",
	".envrc",
}

// Options configures one engine invocation.
type Options struct {
	// RepoRoot is the consuming repository root.
	RepoRoot string
	// HubPath overrides the conventional hub location. Relative values
	// resolve against RepoRoot.
	HubPath string
	// HooksSource overrides the hook source directory from the config.
	HooksSource string
	// HooksDir is the hook install directory relative to RepoRoot.
	HooksDir string
	// BackupDir holds pre-existing hooks displaced by an install.
	BackupDir string
	// DryRun logs what would be done without touching anything.
	DryRun bool
	// Force removes managed content even when it was edited after install.
	Force bool
	// Restore copies backed-up hooks back into place on uninstall.
	Restore bool
}

// Engine performs install and uninstall runs against one repository.
type Engine struct {
	git      gitrepo.Client
	logger   *slog.Logger
	opts     Options
	injector *inject.Injector
	hooks    *hook.Installer
}

// New creates an engine. Zero-value option fields get defaults.
func New(git gitrepo.Client, logger *slog.Logger, opts Options) *Engine {
	if opts.HooksDir == "" {
		opts.HooksDir = DefaultHooksDir
	}
	if opts.BackupDir == "" {
		opts.BackupDir = DefaultBackupDir
	}
	return &Engine{
		git:      git,
		logger:   logger,
		opts:     opts,
		injector: inject.New(logger),
		hooks:    hook.New(logger),
	}
}

// Install runs the full install lifecycle: inject every configured entry,
// install declared hooks, point core.hooksPath at the hook directory, and
// record the manifest. Nothing-to-do cases (no repository, no config) log
// and return nil.
func (e *Engine) Install(ctx context.Context) error {
	root := e.opts.RepoRoot

	isRepo, err := e.git.IsRepository(ctx, root)
	if err != nil {
		return err
	}
	if !isRepo {
		e.logger.Info("not a git repository, nothing to do", "path", root)
		return nil
	}

	hubPath := config.ResolveHubPath(root, e.opts.HubPath)
	cfg, err := config.Load(hubPath)
	if err != nil {
		return err
	}
	if cfg == nil {
		e.logger.Info("no hub config found, nothing to install", "hub", filepath.Join(hubPath, config.FileName))
		return nil
	}

	// Previous manifest entries are carried forward for items skipped as
	// already up to date, so a reinstall never forgets what it manages.
	prev, err := manifest.Load(root)
	if err != nil {
		return err
	}

	injections, changed, err := e.installInjections(cfg, hubPath, prev)
	if err != nil {
		return err
	}

	hooks, hooksChanged, err := e.installHooks(ctx, cfg, hubPath, prev)
	if err != nil {
		return err
	}
	changed += hooksChanged

	if e.opts.DryRun {
		e.logger.Info("dry-run complete, no changes applied")
		return nil
	}

	if changed == 0 && prev == nil {
		e.logger.Info("nothing to do, no manifest written")
		return nil
	}

	if err := manifest.Save(root, manifest.New(hubPath, injections, hooks)); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	e.logger.Info("install complete", "changed", changed, "manifest", manifest.Path(root))
	return nil
}

func (e *Engine) installInjections(cfg *config.Config, hubPath string, prev *manifest.Manifest) ([]manifest.Entry, int, error) {
	var entries []manifest.Entry
	changed := 0

	for _, entry := range cfg.Inject {
		target := filepath.Join(e.opts.RepoRoot, entry.Target)

		if entry.Compare != "" {
			equal, err := digest.FilesEqual(target, filepath.Join(hubPath, entry.Compare))
			if err != nil {
				return nil, 0, err
			}
			if equal {
				e.logger.Info("target already matches compare file, skipping", "file", entry.Target)
				if p := prevInjection(prev, entry.Target); p != nil {
					entries = append(entries, *p)
				}
				continue
			}
		}

		rendered, err := template.Render(hubPath, entry.Template)
		if err != nil {
			if os.IsNotExist(err) {
				e.logger.Warn("template not found, skipping entry", "template", entry.Template, "file", entry.Target)
				if p := prevInjection(prev, entry.Target); p != nil {
					entries = append(entries, *p)
				}
				continue
			}
			return nil, 0, fmt.Errorf("failed to render template %s: %w", entry.Template, err)
		}

		if e.opts.DryRun {
			e.logger.Info("[dry-run] would inject", "file", entry.Target, "position", entry.Position)
			continue
		}

		res, err := e.injector.Inject(target, rendered, entry.Position)
		if err != nil {
			return nil, 0, err
		}
		if res.Action == inject.ActionSkipped {
			if p := prevInjection(prev, entry.Target); p != nil {
				entries = append(entries, *p)
			}
			continue
		}

		action := manifest.ActionInject
		if res.Action == inject.ActionCreated {
			action = manifest.ActionCreate
		}
		e.logger.Info("injected content", "file", entry.Target, "action", string(res.Action), "position", entry.Position)
		changed++

		entries = append(entries, manifest.Entry{
			File:         entry.Target,
			Action:       action,
			ContentHash:  res.ContentHash,
			Position:     entry.Position,
			AddedNewline: res.AddedNewline,
		})
	}

	return entries, changed, nil
}

func (e *Engine) installHooks(ctx context.Context, cfg *config.Config, hubPath string, prev *manifest.Manifest) ([]manifest.HookEntry, int, error) {
	if len(cfg.Hooks.Files) == 0 {
		return nil, 0, nil
	}

	root := e.opts.RepoRoot
	srcDir := e.opts.HooksSource
	if srcDir == "" {
		srcDir = filepath.Join(hubPath, cfg.Hooks.Source)
	}
	dstDir := filepath.Join(root, e.opts.HooksDir)
	backupDir := filepath.Join(root, e.opts.BackupDir)

	if e.opts.DryRun {
		for _, name := range cfg.Hooks.Files {
			e.logger.Info("[dry-run] would install hook", "hook", name, "dest", filepath.Join(dstDir, name))
		}
		return nil, 0, nil
	}

	installed, err := e.hooks.Install(srcDir, dstDir, backupDir, cfg.Hooks.Files)
	if err != nil {
		return nil, 0, err
	}

	// Manifest paths are stored relative to the repository root.
	entries := make([]manifest.HookEntry, 0, len(installed))
	seen := make(map[string]bool)
	for _, he := range installed {
		if rel, relErr := filepath.Rel(root, he.File); relErr == nil {
			he.File = rel
		}
		entries = append(entries, he)
		seen[he.File] = true
	}
	changed := len(entries)

	// Carry forward previously managed hooks skipped as up to date.
	if prev != nil {
		for _, he := range prev.Hooks {
			if !seen[he.File] {
				entries = append(entries, he)
			}
		}
	}

	// core.hooksPath is read once and written once, here.
	current, err := e.git.HooksPath(ctx, root)
	if err != nil {
		return nil, 0, err
	}
	if current != e.opts.HooksDir {
		if err := e.git.SetHooksPath(ctx, root, e.opts.HooksDir); err != nil {
			return nil, 0, err
		}
		e.logger.Info("set core.hooksPath", "path", e.opts.HooksDir)
	}

	return entries, changed, nil
}

// Uninstall reverses a previous install using the manifest, or a
// heuristic scan when no manifest exists.
func (e *Engine) Uninstall(ctx context.Context) error {
	root := e.opts.RepoRoot

	isRepo, err := e.git.IsRepository(ctx, root)
	if err != nil {
		return err
	}
	if !isRepo {
		e.logger.Info("not a git repository, nothing to do", "path", root)
		return nil
	}

	m, err := manifest.Load(root)
	if err != nil {
		return err
	}
	if m == nil {
		e.logger.Info("no manifest found, running heuristic cleanup")
		return e.heuristicCleanup(ctx)
	}

	if e.opts.DryRun {
		for _, entry := range m.Injections {
			e.logger.Info("[dry-run] would remove marked region", "file", entry.File)
		}
		for _, he := range m.Hooks {
			e.logger.Info("[dry-run] would remove hook", "hook", he.File)
		}
		e.logger.Info("dry-run complete, no changes applied")
		return nil
	}

	for _, entry := range m.Injections {
		target := filepath.Join(root, entry.File)
		deleteIfEmpty := entry.Action == manifest.ActionCreate

		res, err := e.injector.Eject(target, entry.ContentHash, entry.AddedNewline, e.opts.Force, deleteIfEmpty)
		if err != nil {
			return err
		}
		if res.Action != inject.ActionSkipped {
			e.logger.Info("removed marked region", "file", entry.File, "action", string(res.Action))
		}
	}

	hooks := make([]manifest.HookEntry, 0, len(m.Hooks))
	for _, he := range m.Hooks {
		if !filepath.IsAbs(he.File) {
			he.File = filepath.Join(root, he.File)
		}
		hooks = append(hooks, he)
	}
	if err := e.hooks.Remove(filepath.Join(root, e.opts.BackupDir), hooks, e.opts.Force, e.opts.Restore); err != nil {
		return err
	}

	if err := e.unsetHooksPath(ctx); err != nil {
		return err
	}

	if err := manifest.Remove(root); err != nil {
		return fmt.Errorf("failed to remove manifest: %w", err)
	}
	e.logger.Info("uninstall complete")
	return nil
}

// heuristicCleanup removes whatever hub-managed content it can find when
// the manifest is lost: marked regions in well-known files and sentinel-
// bearing scripts in the hook directory.
func (e *Engine) heuristicCleanup(ctx context.Context) error {
	root := e.opts.RepoRoot

	for _, name := range wellKnownFiles {
		path := filepath.Join(root, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		style := marker.StyleFor(path)
		remainder, count := marker.Strip(style, string(data))
		if count == 0 {
			continue
		}
		if e.opts.DryRun {
			e.logger.Info("[dry-run] would remove marked region", "file", name, "regions", count)
			continue
		}
		if err := fsutil.WriteFile(path, []byte(remainder), 0o644); err != nil {
			return err
		}
		e.logger.Info("removed marked region", "file", name, "regions", count)
	}

	hooksDir := filepath.Join(root, e.opts.HooksDir)
	managed, err := hook.ScanManaged(hooksDir)
	if err != nil {
		return err
	}
	for _, path := range managed {
		if e.opts.DryRun {
			e.logger.Info("[dry-run] would remove managed hook", "path", path)
			continue
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		e.logger.Info("removed managed hook", "path", path)
	}

	if e.opts.DryRun {
		e.logger.Info("dry-run complete, no changes applied")
		return nil
	}
	return e.unsetHooksPath(ctx)
}

// unsetHooksPath clears core.hooksPath, but only when it still points at
// the directory this tool manages.
func (e *Engine) unsetHooksPath(ctx context.Context) error {
	current, err := e.git.HooksPath(ctx, e.opts.RepoRoot)
	if err != nil {
		return err
	}
	if current != e.opts.HooksDir {
		if current != "" {
			e.logger.Info("core.hooksPath points elsewhere, leaving it", "path", current)
		}
		return nil
	}
	if err := e.git.UnsetHooksPath(ctx, e.opts.RepoRoot); err != nil {
		return err
	}
	e.logger.Info("unset core.hooksPath")
	return nil
}

// Status reports the drift of every manifest entry without changing
// anything.
func (e *Engine) Status(ctx context.Context) error {
	root := e.opts.RepoRoot

	m, err := manifest.Load(root)
	if err != nil {
		return err
	}
	if m == nil {
		e.logger.Info("no manifest found, nothing is installed", "path", root)
		return nil
	}

	e.logger.Info("manifest", "hub", m.HubPath, "installed_at", m.InstalledAt, "injections", len(m.Injections), "hooks", len(m.Hooks))

	for _, entry := range m.Injections {
		target := filepath.Join(root, entry.File)
		state := injectionState(target, entry.ContentHash)
		e.logger.Info("injection", "file", entry.File, "state", state)
	}

	for _, he := range m.Hooks {
		path := he.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		state := "unchanged"
		hash, err := digest.File(path)
		switch {
		case os.IsNotExist(err):
			state = "missing"
		case err != nil:
			return err
		case hash != he.ContentHash:
			state = "modified"
		}
		e.logger.Info("hook", "file", he.File, "state", state)
	}

	return nil
}

func injectionState(target, recordedHash string) string {
	data, err := os.ReadFile(target)
	if err != nil {
		return "missing"
	}
	body, _, found := marker.Find(marker.StyleFor(target), string(data))
	if !found {
		return "missing"
	}
	if digest.String(body) != recordedHash {
		return "modified"
	}
	return "unchanged"
}

// prevInjection finds a previous manifest entry for a target file.
func prevInjection(prev *manifest.Manifest, file string) *manifest.Entry {
	if prev == nil {
		return nil
	}
	for i := range prev.Injections {
		if prev.Injections[i].File == file {
			return &prev.Injections[i]
		}
	}
	return nil
}
