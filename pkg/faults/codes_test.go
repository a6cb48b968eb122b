package faults

import (
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestCodesAreStable(t *testing.T) {
	assert.Equal(t, 0, int(None))
	assert.Equal(t, 1, int(FileNotFound))
	assert.Equal(t, 2, int(OutputNotFound))
	assert.Equal(t, 3, int(CannotSetBothDevelopmentAndProduction))
	assert.Equal(t, 4, int(UnknownFormat))
	assert.Equal(t, 5, int(TsconfigNotFound))
	assert.Equal(t, 6, int(ManifestInvalid))
	assert.Equal(t, 7, int(BuildFailed))
}

func TestCodeOf(t *testing.T) {
	fault := New(UnknownFormat, "Unknown format: %s", "amd")

	assert.Equal(t, None, CodeOf(nil))
	assert.Equal(t, UnknownFormat, CodeOf(fault))
	assert.Equal(t, UnknownFormat, CodeOf(fmt.Errorf("assembling: %w", fault)))
	assert.Equal(t, BuildFailed, CodeOf(eris.New("compile failed")))
	assert.True(t, Is(fault, UnknownFormat))
	assert.False(t, Is(fault, FileNotFound))
}

func TestFaultMessage(t *testing.T) {
	cause := eris.New("unexpected token")
	fault := Wrap(ManifestInvalid, cause, "failed to execute %s", "toolkit.star")

	assert.Equal(t, "failed to execute toolkit.star", fault.Message())
	assert.Contains(t, fault.Error(), "unexpected token")
	assert.Equal(t, "unknown format", UnknownFormat.String())
	assert.Equal(t, "code(42)", Code(42).String())
}
