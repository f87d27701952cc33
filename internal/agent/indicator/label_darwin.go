//go:build darwin

package indicator

import (
	"fmt"
	"os/exec"
	"strings"
)

// setFinderLabel sets the Finder label index of a file through osascript.
// Label indexes are Finder's own: 0 clears, 1-7 select a color.
func setFinderLabel(path string, labelIndex int) error {
	script := fmt.Sprintf(
		`tell application "Finder" to set label index of (POSIX file "%s" as alias) to %d`,
		escapeAppleScript(path), labelIndex,
	)

	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// AppleScript errors carry the message and number in the output
		return fmt.Errorf("set finder label: osascript error %q: %w", strings.TrimSpace(string(output)), err)
	}

	return nil
}

// escapeAppleScript escapes characters that would break out of an
// AppleScript string literal.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
