package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCommand(t *testing.T) {
	cmd := `-af "volume=1.5" -metadata comment='made by video2voice'`
	expected := []string{"-af", "volume=1.5", "-metadata", "comment=made by video2voice"}

	args, err := SplitCommand(cmd)
	assert.NoError(t, err)
	assert.Equal(t, expected, args)

	_, err = SplitCommand(`-af "unterminated`)
	assert.Error(t, err)
}

func TestValidateArgs(t *testing.T) {
	t.Run("Valid arguments", func(t *testing.T) {
		args, _ := SplitCommand(`-af volume=1.5 -threads 2`)
		assert.NoError(t, ValidateArgs(args))
	})

	t.Run("Disallowed character (semicolon)", func(t *testing.T) {
		args, _ := SplitCommand(`-threads 2; ls`)
		err := ValidateArgs(args)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "disallowed character found in argument: 2;")
	})

	t.Run("Disallowed character (dollar)", func(t *testing.T) {
		args, _ := SplitCommand(`-af "volume=$(($RANDOM))"`)
		err := ValidateArgs(args)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "disallowed character found in argument: volume=$(($RANDOM))")
	})

	t.Run("Managed flag", func(t *testing.T) {
		err := ValidateArgs([]string{"-i", "/etc/passwd"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be overridden")
	})
}
