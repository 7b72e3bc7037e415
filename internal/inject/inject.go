// Package inject rewrites marker-bounded regions of consumer-owned files.
package inject

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/grafthq/graft/internal/config"
	"github.com/grafthq/graft/internal/digest"
	"github.com/grafthq/graft/internal/fsutil"
	"github.com/grafthq/graft/internal/marker"
)

// Action describes what an injection or ejection did to a target file.
type Action string

const (
	// ActionSkipped means the file was left untouched.
	ActionSkipped Action = "skipped"
	// ActionCreated means the target file did not exist and was created.
	ActionCreated Action = "created"
	// ActionInjected means the region was written into an existing file.
	ActionInjected Action = "injected"
	// ActionRemoved means the region was removed, keeping the file.
	ActionRemoved Action = "removed"
	// ActionDeleted means the whole file was deleted on ejection.
	ActionDeleted Action = "deleted"
)

// Result reports the action taken and, for injections, the hash of the
// region body as written. AddedNewline records that the target's final
// line had to be terminated to place the block after it; ejection takes
// that byte back so removal restores the file exactly.
type Result struct {
	Action       Action
	ContentHash  string
	AddedNewline bool
}

// Injector performs marker-region rewrites on target files.
type Injector struct {
	logger *slog.Logger
}

// New creates an Injector.
func New(logger *slog.Logger) *Injector {
	return &Injector{logger: logger}
}

// Inject writes rendered content into target inside a marked region at the
// given position. Any pre-existing region is removed first, so repeated
// installs never stack duplicate regions.
func (in *Injector) Inject(target, rendered, position string) (Result, error) {
	style := marker.StyleFor(target)

	content, existed, err := readIfExists(target)
	if err != nil {
		return Result{Action: ActionSkipped}, err
	}

	content, stripped := marker.Strip(style, content)
	if stripped > 1 {
		in.logger.Warn("multiple marked regions found, removing all before reinjecting",
			"file", target, "count", stripped)
	}

	body := marker.Normalize(rendered)
	block := marker.Wrap(style, rendered)

	var addedNewline bool
	switch {
	case position == config.PositionPrepend:
		content = block + content
	case position == config.PositionAppend:
		content, addedNewline = appendBlock(content, block)
	default:
		pattern, ok := config.AfterPattern(position)
		if !ok {
			return Result{Action: ActionSkipped}, fmt.Errorf("invalid position %q for %s", position, target)
		}
		placed, found, added := insertAfter(content, pattern, block)
		if !found {
			in.logger.Warn("no line matches after-pattern, falling back to prepend",
				"file", target, "pattern", pattern)
			placed = block + content
			added = false
		}
		content = placed
		addedNewline = added
	}

	if err := fsutil.WriteFile(target, []byte(content), fileMode(target, existed)); err != nil {
		return Result{Action: ActionSkipped}, fmt.Errorf("failed to write %s: %w", target, err)
	}

	action := ActionInjected
	if !existed {
		action = ActionCreated
	}
	return Result{Action: action, ContentHash: digest.String(body), AddedNewline: addedNewline}, nil
}

// Eject removes the marked region from target. When the current region
// body no longer hashes to recordedHash the file is skipped unless force
// is set: destroying content a user has edited is the failure mode this
// tool must avoid. addedNewline says the matching Inject terminated the
// final line to place the block, so the newline is stripped again here.
// deleteIfEmpty removes the whole file when nothing but the region
// remains (the install created it).
func (in *Injector) Eject(target, recordedHash string, addedNewline, force, deleteIfEmpty bool) (Result, error) {
	style := marker.StyleFor(target)

	content, existed, err := readIfExists(target)
	if err != nil {
		return Result{Action: ActionSkipped}, err
	}
	if !existed {
		in.logger.Warn("managed file no longer exists, skipping", "file", target)
		return Result{Action: ActionSkipped}, nil
	}

	body, count, found := marker.Find(style, content)
	if !found {
		in.logger.Warn("no marked region found, skipping", "file", target)
		return Result{Action: ActionSkipped}, nil
	}
	if count > 1 {
		in.logger.Warn("multiple marked regions found, removing all", "file", target, "count", count)
	}

	if digest.String(body) != recordedHash && !force {
		in.logger.Warn("marked region was edited since install, skipping (use --force to remove)",
			"file", target)
		return Result{Action: ActionSkipped}, nil
	}

	remainder, _ := marker.Strip(style, content)
	if addedNewline {
		remainder = strings.TrimSuffix(remainder, "\n")
	}

	if deleteIfEmpty && strings.TrimSpace(remainder) == "" {
		if err := os.Remove(target); err != nil {
			return Result{Action: ActionSkipped}, fmt.Errorf("failed to delete %s: %w", target, err)
		}
		return Result{Action: ActionDeleted}, nil
	}

	if err := fsutil.WriteFile(target, []byte(remainder), fileMode(target, true)); err != nil {
		return Result{Action: ActionSkipped}, fmt.Errorf("failed to write %s: %w", target, err)
	}
	return Result{Action: ActionRemoved}, nil
}

// readIfExists returns the file content and whether the file existed.
func readIfExists(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), true, nil
}

// fileMode preserves the mode of an existing target, defaulting to 0644.
func fileMode(path string, existed bool) os.FileMode {
	if existed {
		if info, err := os.Stat(path); err == nil {
			return info.Mode().Perm()
		}
	}
	return 0o644
}

// appendBlock places block after content, making sure the block's start
// sentinel begins on its own line. Reports whether content's final line
// had to be terminated to do so.
func appendBlock(content, block string) (string, bool) {
	if content == "" {
		return block, false
	}
	if !strings.HasSuffix(content, "\n") {
		return content + "\n" + block, true
	}
	return content + block, false
}

// insertAfter places block immediately after the first line equal to
// pattern, ignoring trailing whitespace. Reports whether a line matched
// and whether a final unterminated line had to be terminated.
func insertAfter(content, pattern, block string) (string, bool, bool) {
	pattern = strings.TrimRight(pattern, " \t")

	lines := strings.SplitAfter(content, "\n")
	for i, line := range lines {
		if strings.TrimRight(line, " \t\r\n") != pattern {
			continue
		}
		// A final line without a newline needs one before the block.
		added := false
		if !strings.HasSuffix(line, "\n") {
			lines[i] = line + "\n"
			added = true
		}
		var b strings.Builder
		for _, l := range lines[:i+1] {
			b.WriteString(l)
		}
		b.WriteString(block)
		for _, l := range lines[i+1:] {
			b.WriteString(l)
		}
		return b.String(), true, added
	}
	return content, false, false
}
