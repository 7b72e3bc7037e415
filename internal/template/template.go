// Package template loads named snippet templates from the hub and
// substitutes the hub path placeholder.
package template

import (
	"os"
	"path/filepath"
	"strings"
)

// Placeholder is the reserved token replaced with the resolved hub path.
const Placeholder = "{{HUB_PATH}}"

// Dir is the directory under the hub root holding template files.
const Dir = "templates"

// Render loads the named template from the hub's template directory and
// substitutes every occurrence of the placeholder with hubPath. The name
// may be given with or without the .tmpl suffix. A missing template is
// reported via os.IsNotExist on the returned error; callers treat it as a
// per-entry skip, never a fatal failure.
func Render(hubPath, name string) (string, error) {
	data, err := load(hubPath, name)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(string(data), Placeholder, hubPath), nil
}

func load(hubPath, name string) ([]byte, error) {
	path := filepath.Join(hubPath, Dir, name)
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !os.IsNotExist(err) || strings.HasSuffix(name, ".tmpl") {
		return nil, err
	}
	return os.ReadFile(path + ".tmpl")
}
