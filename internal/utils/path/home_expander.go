package pathutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	homeShortcutConstant                   = "~"
	homeDirectoryErrorTemplateConstant     = "unable to expand %q: %w"
	otherUserShortcutErrorTemplateConstant = "unable to expand %q: only the current user's home (~) is supported"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander rewrites a leading "~" in secret file and workflow paths. The home directory
// is looked up once.
type HomeExpander struct {
	provider    HomeDirectoryProvider
	lookupOnce  sync.Once
	home        string
	lookupError error
}

// NewHomeExpander constructs an expander backed by os.UserHomeDir.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(nil)
}

// NewHomeExpanderWithProvider constructs an expander with a custom provider; nil selects os.UserHomeDir.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{provider: provider}
}

// Expand returns candidatePath with "~" or "~/" replaced by the home directory. Paths
// without the shortcut pass through unchanged. "~name" forms are rejected rather than
// guessed at, and a failed home lookup is reported instead of yielding a literal "~" path.
func (expander *HomeExpander) Expand(candidatePath string) (string, error) {
	if expander == nil || !strings.HasPrefix(candidatePath, homeShortcutConstant) {
		return candidatePath, nil
	}

	remainder := strings.TrimPrefix(candidatePath, homeShortcutConstant)
	if len(remainder) > 0 && remainder[0] != '/' && remainder[0] != os.PathSeparator {
		return "", fmt.Errorf(otherUserShortcutErrorTemplateConstant, candidatePath)
	}

	expander.lookupOnce.Do(func() {
		expander.home, expander.lookupError = expander.provider()
	})
	if expander.lookupError != nil {
		return "", fmt.Errorf(homeDirectoryErrorTemplateConstant, candidatePath, expander.lookupError)
	}

	return filepath.Join(expander.home, remainder), nil
}
