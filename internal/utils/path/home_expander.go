package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	homeShortcutConstant        = "~"
	homeShortcutSlashConstant   = "~/"
	homeShortcutNativeSeparator = homeShortcutConstant + string(os.PathSeparator)
)

// HomeDirectoryProvider resolves the current user's home directory.
type HomeDirectoryProvider func() (string, error)

// HomeExpander rewrites a leading "~" to the user's home directory.
// The home directory is resolved once, on first use.
type HomeExpander struct {
	provider      HomeDirectoryProvider
	resolveOnce   sync.Once
	homeDirectory string
}

var defaultHomeExpander = NewHomeExpander(os.UserHomeDir)

// NewHomeExpander constructs an expander backed by the provider, falling back to os.UserHomeDir.
func NewHomeExpander(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{provider: provider}
}

// ExpandHome expands "~" using the operating system home directory.
func ExpandHome(candidatePath string) string {
	return defaultHomeExpander.Expand(candidatePath)
}

// Expand returns candidatePath with a leading "~" or "~/" replaced by the home directory.
// Paths such as "~user" and paths without the shortcut are returned unchanged, as are all
// paths when the home directory cannot be resolved.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || !strings.HasPrefix(candidatePath, homeShortcutConstant) {
		return candidatePath
	}

	var relativePath string
	switch {
	case candidatePath == homeShortcutConstant:
	case strings.HasPrefix(candidatePath, homeShortcutSlashConstant):
		relativePath = candidatePath[len(homeShortcutSlashConstant):]
	case strings.HasPrefix(candidatePath, homeShortcutNativeSeparator):
		relativePath = candidatePath[len(homeShortcutNativeSeparator):]
	default:
		return candidatePath
	}

	homeDirectory := expander.home()
	if len(homeDirectory) == 0 {
		return candidatePath
	}
	return filepath.Join(homeDirectory, relativePath)
}

func (expander *HomeExpander) home() string {
	expander.resolveOnce.Do(func() {
		homeDirectory, homeError := expander.provider()
		if homeError == nil {
			expander.homeDirectory = homeDirectory
		}
	})
	return expander.homeDirectory
}
