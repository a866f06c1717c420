package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dealbook/internal/apperr"
)

func TestOutputFormatter_JSON(t *testing.T) {
	tests := []struct {
		name    string
		write   func(f *OutputFormatter) error
		status  string
		code    string
		details bool
	}{
		{
			name:   "success",
			write:  func(f *OutputFormatter) error { return f.Success(map[string]int{"updated": 2}) },
			status: "ok",
		},
		{
			name:   "error",
			write:  func(f *OutputFormatter) error { return f.Error("LABEL_REQUIRED", "set a label first", nil) },
			status: "error",
			code:   "LABEL_REQUIRED",
		},
		{
			name: "error_with_details",
			write: func(f *OutputFormatter) error {
				return f.Error("UNKNOWN_COLUMN", "unknown column", map[string]string{"table": "Companies", "column": "Nope"})
			},
			status:  "error",
			code:    "UNKNOWN_COLUMN",
			details: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			require.NoError(t, tt.write(&OutputFormatter{Format: "json", Writer: buf}))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
			if tt.code == "" {
				assert.Nil(t, resp.Error)
				assert.NotNil(t, resp.Data)
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.details, resp.Error.Details != nil)
		})
	}
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success("3 snapshots"))
	require.NoError(t, f.Error("LABEL_REQUIRED", "set a label first", map[string]string{"size": "5"}))
	assert.Equal(t, "3 snapshots\nError [LABEL_REQUIRED]: set a label first\n", buf.String())

	buf.Reset()
	f.Verbose = true
	require.NoError(t, f.Error("BATCH_TOO_LARGE", "too many changes", map[string]string{"size": "5"}))
	assert.Contains(t, buf.String(), "Details: map[size:5]")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	diag := &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag}
	quiet.VerboseLog("applying %d edit(s)", 2)
	assert.Empty(t, diag.String())

	loud := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}
	loud.VerboseLog("applying %d edit(s)", 2)
	assert.Equal(t, "applying 2 edit(s)\n", diag.String())
	assert.Empty(t, out.String())

	noErrWriter := &OutputFormatter{Format: "text", Writer: out, Verbose: true}
	noErrWriter.VerboseLog("opened %s", "dealbook.db")
	assert.Equal(t, "opened dealbook.db\n", out.String())
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.InvalidNumber("abc"), ExitFailure},
		{"schema", apperr.UnknownTable("Nope"), ExitFailure},
		{"not_found", apperr.NotFound("snapshot", "s1"), ExitFailure},
		{"forbidden", apperr.ForbiddenTarget("field_changes"), ExitFailure},
		{"permission", apperr.LabelRequired(), ExitFailure},
		{"storage", apperr.Storage("commit", errors.New("disk full")), ExitCommandError},
		{"plain", errors.New("boom"), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Fail(apperr.BatchTooLarge(5, 2))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, apperr.HasCode(err, apperr.CodeBatchTooLarge))
	assert.True(t, IsReported(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BATCH_TOO_LARGE", resp.Error.Code)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_FailPassesExitErrorThrough(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	in := NewExitError(ExitCommandError, "bad flags")
	err := formatter.Fail(in)
	assert.Same(t, in, err)
	assert.Empty(t, buf.String())
	assert.False(t, IsReported(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "x", errors.New("y"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
