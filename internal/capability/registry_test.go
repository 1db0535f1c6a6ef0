package capability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
)

func fileTool(t *testing.T, fn Func) *Tool {
	t.Helper()
	tool, err := New(models.ToolSpec{
		Name: "read_file",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []any{"path"},
			"properties": map[string]any{
				"path": map[string]any{"type": "string", "minLength": 1},
			},
		},
	}, fn)
	require.NoError(t, err)
	return tool
}

func TestExecuteSuccess(t *testing.T) {
	tool := fileTool(t, func(_ context.Context, args map[string]any) (models.Result, error) {
		return models.FileRead{Path: args["path"].(string), Content: "hello"}, nil
	})

	obs := tool.Execute(context.Background(), map[string]any{"path": "notes.txt"})
	assert.Equal(t, models.ToolSucceeded, obs.Status)
	assert.Equal(t, "File read successfully: 5 characters", obs.OutputText)
	assert.Empty(t, obs.Error)
	payload, ok := obs.Payload.(models.FileRead)
	require.True(t, ok)
	assert.Equal(t, "notes.txt", payload.Path)
	assert.False(t, obs.CreatedAt.IsZero())
}

func TestExecuteConvertsErrorAndPanic(t *testing.T) {
	failing := fileTool(t, func(context.Context, map[string]any) (models.Result, error) {
		return nil, errors.New("disk gone")
	})
	obs := failing.Execute(context.Background(), map[string]any{"path": "x"})
	assert.Equal(t, models.ToolErrored, obs.Status)
	assert.Equal(t, "disk gone", obs.Error)
	assert.Equal(t, "Error: disk gone", obs.OutputText)
	assert.Nil(t, obs.Payload)

	panicking := fileTool(t, func(context.Context, map[string]any) (models.Result, error) {
		panic("boom")
	})
	obs = panicking.Execute(context.Background(), map[string]any{"path": "x"})
	assert.Equal(t, models.ToolErrored, obs.Status)
	assert.Contains(t, obs.Error, "boom")
}

func TestExecuteNilResult(t *testing.T) {
	tool := fileTool(t, func(context.Context, map[string]any) (models.Result, error) {
		return nil, nil
	})
	obs := tool.Execute(context.Background(), map[string]any{"path": "x"})
	assert.Equal(t, models.ToolErrored, obs.Status)
	assert.Equal(t, ErrNilResult.Error(), obs.Error)
}

type blankResult struct{ models.FileRead }

func (blankResult) Text() string { return "" }

func TestExecuteDefaultsEmptyText(t *testing.T) {
	tool := fileTool(t, func(context.Context, map[string]any) (models.Result, error) {
		return blankResult{}, nil
	})
	obs := tool.Execute(context.Background(), map[string]any{"path": "x"})
	assert.Equal(t, models.ToolSucceeded, obs.Status)
	assert.Equal(t, "Tool execution successful", obs.OutputText)
}

func TestExecuteRejectsInvalidArguments(t *testing.T) {
	called := false
	tool := fileTool(t, func(context.Context, map[string]any) (models.Result, error) {
		called = true
		return models.FileRead{}, nil
	})

	obs := tool.Execute(context.Background(), map[string]any{"path": 42})
	assert.Equal(t, models.ToolErrored, obs.Status)
	assert.Contains(t, obs.Error, ErrInvalidArguments.Error())
	assert.False(t, called)

	err := tool.Validate(map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestExecuteAppliesTimeout(t *testing.T) {
	tool, err := New(models.ToolSpec{Name: "slow", TimeoutSeconds: 1}, func(ctx context.Context, _ map[string]any) (models.Result, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			return nil, errors.New("no deadline")
		}
		if time.Until(deadline) > time.Second {
			return nil, errors.New("deadline too far")
		}
		return models.FileRead{Content: "ok"}, nil
	})
	require.NoError(t, err)
	obs := tool.Execute(context.Background(), nil)
	assert.Equal(t, models.ToolSucceeded, obs.Status, obs.Error)
}

func TestNewAppliesDefaultsAndRejectsBadSchema(t *testing.T) {
	tool, err := New(models.ToolSpec{Name: "noop"}, func(context.Context, map[string]any) (models.Result, error) {
		return models.FileRead{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 60, tool.Spec.TimeoutSeconds)
	assert.Equal(t, 1, tool.Spec.MaxRetries)

	_, err = New(models.ToolSpec{Name: "bad", InputSchema: map[string]any{"type": 12}}, tool.fn)
	assert.Error(t, err)

	_, err = New(models.ToolSpec{}, tool.fn)
	assert.Error(t, err)
	_, err = New(models.ToolSpec{Name: "nofn"}, nil)
	assert.Error(t, err)
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	first := MustNew(models.ToolSpec{Name: "send_email", Description: "first"}, func(context.Context, map[string]any) (models.Result, error) {
		return models.EmailSent{}, nil
	})
	second := MustNew(models.ToolSpec{Name: "send_email", Description: "second"}, first.fn)
	other := MustNew(models.ToolSpec{Name: "read_file"}, first.fn)

	reg := NewRegistry(first, other)
	reg.Register(second)

	got, ok := reg.Get("send_email")
	require.True(t, ok)
	assert.Equal(t, "second", got.Spec.Description)
	assert.Equal(t, []string{"read_file", "send_email"}, reg.List())

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	var nilReg *Registry
	_, ok = nilReg.Get("send_email")
	assert.False(t, ok)
}
