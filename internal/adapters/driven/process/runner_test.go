package process

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

func shell(script string) Command {
	return Command{Path: "sh", Args: []string{"-c", script}, Operation: "test"}
}

func TestExecRunner_Run_CapturesStdout(t *testing.T) {
	res, err := NewExecRunner().Run(context.Background(), shell("echo hello"))

	require.NoError(t, err)
	assert.Equal(t, "hello", strings.TrimSpace(string(res.Stdout)))
}

func TestExecRunner_Run_NonZeroExit(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), shell("echo broken pipeline >&2; exit 3"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEngineExecutionFailed)

	var engineErr *domain.EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, 3, engineErr.ExitCode)
	assert.Equal(t, "sh", engineErr.Engine)
	assert.Equal(t, "test", engineErr.Operation)
	assert.Contains(t, engineErr.Stderr, "broken pipeline")
	assert.False(t, engineErr.TimedOut)
}

func TestExecRunner_Run_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewExecRunner().Run(ctx, shell("sleep 5"))

	var engineErr *domain.EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.True(t, engineErr.TimedOut)
	assert.ErrorIs(t, err, domain.ErrEngineExecutionFailed)
}

func TestExecRunner_Run_MissingBinary(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), Command{Path: "lidarqc-no-such-binary"})

	assert.ErrorIs(t, err, domain.ErrEngineExecutionFailed)
	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
}

func TestWithTempFile_RemovesFileAfterError(t *testing.T) {
	var seen string
	boom := errors.New("boom")

	err := WithTempFile("pipeline-*.json", []byte(`{"pipeline":[]}`), func(path string) error {
		seen = path
		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, `{"pipeline":[]}`, string(data))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	_, statErr := os.Stat(seen)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWithTempDir_RemovesContents(t *testing.T) {
	var seen string
	err := WithTempDir("scratch-*", func(dir string) error {
		seen = dir
		return os.WriteFile(dir+"/x.txt", []byte("x"), 0o600)
	})

	require.NoError(t, err)
	_, statErr := os.Stat(seen)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMockRunner_RecordsCommands(t *testing.T) {
	m := &MockRunner{}
	_, err := m.Run(context.Background(), Command{Path: "pdal", Args: []string{"info"}})

	require.NoError(t, err)
	require.NotNil(t, m.LastCommand())
	assert.Equal(t, "pdal", m.LastCommand().Path)
}
