package multiplexer

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ShellQuote quotes a string for use in a shell command.
// Returns an empty quoted string for empty input.
func ShellQuote(input string) string {
	if input == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(input, "'", "'\"'\"'") + "'"
}

// ExportEnvCommand builds a shell command string that exports environment variables.
// Returns empty string if env is empty.
func ExportEnvCommand(env map[string]string) string {
	if len(env) == 0 {
		return ""
	}
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("export %s=%s;", key, ShellQuote(env[key])))
	}
	return strings.Join(parts, " ")
}

// ExpandWithEnv expands $VAR/${VAR} references in input, preferring env's
// values over the process environment.
func ExpandWithEnv(input string, env map[string]string) string {
	if input == "" {
		return ""
	}
	return os.Expand(input, func(key string) string {
		if val, ok := env[key]; ok {
			return val
		}
		return os.Getenv(key)
	})
}

// sanitizeSessionName strips characters forbidden in both tmux and zellij
// session names, replacing each with "-".
func sanitizeSessionName(name string) string {
	if name == "" {
		return ""
	}
	replacer := strings.NewReplacer(":", "-", "/", "-", "\\", "-")
	return replacer.Replace(name)
}

// sessionGuardScript renders the shell prologue shared by both multiplexer
// backends: declare $session, define a session_exists predicate around
// existsCheck (which receives the candidate name as $1), and resolve
// onExists (kill the existing session, pick a free "-N" suffix, or leave
// $session pointing at the collision and let the caller decide). Both
// backends' create-or-attach scripts build on this identically; only
// existsCheck and killCmd differ per multiplexer.
func sessionGuardScript(sessionName, existsCheck, killCmd, onExists string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "session=%s\n", ShellQuote(sessionName))
	b.WriteString("base_session=$session\n")
	fmt.Fprintf(&b, "session_exists() { %s; }\n", existsCheck)
	b.WriteString("if session_exists \"$session\"; then\n")
	switch onExists {
	case OnExistsKill:
		fmt.Fprintf(&b, "  %s\n", killCmd)
	case OnExistsNew:
		b.WriteString("  i=2\n")
		b.WriteString("  while session_exists \"${base_session}-$i\"; do i=$((i+1)); done\n")
		b.WriteString("  session=\"${base_session}-$i\"\n")
	default:
		b.WriteString("  :\n")
	}
	b.WriteString("fi\n")
	return b.String()
}
