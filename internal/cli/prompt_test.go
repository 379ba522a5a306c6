package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  PromptResult
	}{
		{"yes", "y\n", PromptResult{Accepted: true}},
		{"full yes uppercase", "YES\n", PromptResult{Accepted: true}},
		{"empty defaults to no", "\n", PromptResult{}},
		{"anything else declines", "sure\n", PromptResult{}},
		{"eof declines", "", PromptResult{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := Confirm(&out, strings.NewReader(tt.input), "Delete 2 synced calculations?")
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Delete 2 synced calculations? [y/N]")
		})
	}
}

func TestConfirm_ReadErrorCancels(t *testing.T) {
	var out bytes.Buffer
	got := Confirm(&out, iotest.ErrReader(errors.New("tty closed")), "Delete?")
	assert.True(t, got.Cancelled)
	assert.False(t, got.Accepted)
}
