package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PromptManager loads named prompt templates from a directory so prompts can
// be tuned without a rebuild.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// Load returns the raw template for a named prompt (prompts/<name>.md).
func (pm *PromptManager) Load(name string) (string, error) {
	path := filepath.Join(pm.Directory, name+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt %s: %v", name, err)
	}
	return string(data), nil
}

// Render loads a prompt and fills its {placeholder} slots.
func (pm *PromptManager) Render(name string, vars map[string]string) (string, error) {
	tmpl, err := pm.Load(name)
	if err != nil {
		return "", err
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl), nil
}
