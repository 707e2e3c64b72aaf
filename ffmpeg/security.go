package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// SplitCommand securely splits a command string into a slice of arguments.
// It prevents shell injection by not using a shell.
func SplitCommand(command string) ([]string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("invalid command syntax: %w", err)
	}
	return args, nil
}

// ValidateArgs rejects operator-supplied extra arguments that carry shell
// metacharacters or would redirect where the tool writes its output.
func ValidateArgs(args []string) error {
	for _, arg := range args {
		if strings.ContainsAny(arg, "|&;`$()<>") {
			return fmt.Errorf("disallowed character found in argument: %s", arg)
		}
		switch arg {
		case "-i", "-o", "--output", "-P", "--paths":
			return fmt.Errorf("argument %s is managed by video2voice and cannot be overridden", arg)
		}
	}
	return nil
}
