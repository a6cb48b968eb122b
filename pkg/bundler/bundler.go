// Package bundler runs build configurations through esbuild.
package bundler

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ZenFlux/rollup-toolkit/pkg/toolkit"
)

// EventCode identifies a watch event
type EventCode string

const (
	EventBundleStart EventCode = "BUNDLE_START"
	EventBundleEnd   EventCode = "BUNDLE_END"
	EventError       EventCode = "ERROR"
)

// Event is reported by Bundler.Watch for every rebuild
type Event struct {
	Code     EventCode
	Error    error
	Warnings []toolkit.Message
}

// Bundler compiles build configurations. ESBuild is the production implementation.
type Bundler interface {
	// Compile bundles cfg in memory. Nothing is written until Bundle.Write is called.
	Compile(ctx context.Context, cfg *toolkit.BuildConfiguration) (*Bundle, error)
	// Watch rebuilds cfg whenever one of its inputs changes and reports each rebuild to handler.
	// It blocks until ctx is cancelled.
	Watch(ctx context.Context, cfg *toolkit.BuildConfiguration, handler func(Event)) error
}

// OutputFile is a single file produced by Compile
type OutputFile struct {
	Path     string
	Contents []byte
}

// Bundle is the in-memory result of Compile
type Bundle struct {
	Files    []OutputFile
	Warnings []toolkit.Message
}

// Write stores all files of the bundle on disk
func (b *Bundle) Write() error {
	for _, file := range b.Files {
		err := os.MkdirAll(filepath.Dir(file.Path), 0755)
		if err != nil {
			return eris.Wrapf(err, "failed to create directory for %s", file.Path)
		}

		err = ioutil.WriteFile(file.Path, file.Contents, 0644)
		if err != nil {
			return eris.Wrapf(err, "failed to write %s", file.Path)
		}
	}

	return nil
}

// Size returns the total number of bytes in the bundle
func (b *Bundle) Size() int {
	total := 0
	for _, file := range b.Files {
		total += len(file.Contents)
	}
	return total
}

// BuildError carries the error messages of a failed build
type BuildError struct {
	Messages []toolkit.Message
}

func (e *BuildError) Error() string {
	lines := make([]string, len(e.Messages))
	for idx, msg := range e.Messages {
		lines[idx] = FormatMessage(msg)
	}
	return strings.Join(lines, "\n")
}

// FormatMessage renders msg as "file:line:col: text"
func FormatMessage(msg toolkit.Message) string {
	text := msg.Text
	if msg.Plugin != "" {
		text = "[plugin " + msg.Plugin + "] " + text
	}

	if msg.File == "" {
		return text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.File, msg.Line, msg.Column, text)
}
