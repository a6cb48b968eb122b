package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZenFlux/rollup-toolkit/pkg/bundler"
	"github.com/ZenFlux/rollup-toolkit/pkg/config"
	"github.com/ZenFlux/rollup-toolkit/pkg/faults"
	"github.com/ZenFlux/rollup-toolkit/pkg/tklog"
	"github.com/ZenFlux/rollup-toolkit/pkg/toolkit"
)

const sampleManifest = `
toolkit(
    input = "src/index.ts",
    output = "lib",
    format = ["cjs", "esm"],
    name = "Lib",
)
`

type fakeBundler struct {
	root       string
	compileErr error
	events     []bundler.Event
	// watchDone is called once every watcher has emitted its events.
	watchDone func()
	watchers  int32

	lock     sync.Mutex
	compiled []toolkit.Format
	watched  []toolkit.Format
}

func (f *fakeBundler) Compile(ctx context.Context, cfg *toolkit.BuildConfiguration) (*bundler.Bundle, error) {
	f.lock.Lock()
	f.compiled = append(f.compiled, cfg.Output.Format)
	f.lock.Unlock()

	if f.compileErr != nil {
		return nil, f.compileErr
	}

	return &bundler.Bundle{Files: []bundler.OutputFile{{
		Path:     filepath.Join(f.root, cfg.Output.File),
		Contents: []byte("export const lib = " + string(cfg.Output.Format) + ";"),
	}}}, nil
}

func (f *fakeBundler) Watch(ctx context.Context, cfg *toolkit.BuildConfiguration, handler func(bundler.Event)) error {
	f.lock.Lock()
	f.watched = append(f.watched, cfg.Output.Format)
	f.lock.Unlock()

	for _, evt := range f.events {
		handler(evt)
	}

	if f.watchDone != nil && int(atomic.AddInt32(&f.watchers, -1)) == 0 {
		f.watchDone()
	}

	<-ctx.Done()
	return nil
}

type syncBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

func newProject(t *testing.T, manifest string) string {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"toolkit.star":  manifest,
		"tsconfig.json": "{}",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0644))
	}
	return root
}

func newBase(root string, fake *fakeBundler) Base {
	settings := &config.Settings{Manifest: "toolkit.star", ClearScreen: true}
	settings.Log.Level = "info"

	return Base{Root: root, Settings: settings, Bundler: fake}
}

func testContext(w *syncBuffer) context.Context {
	logger := zerolog.New(w)
	return tklog.WithLogger(context.Background(), &logger)
}

func TestLoadConfig(t *testing.T) {
	root := newProject(t, sampleManifest)
	base := newBase(root, &fakeBundler{})

	require.NoError(t, base.LoadConfig(context.Background()))

	configs := base.Configs()
	require.Len(t, configs, 2)
	assert.Equal(t, "dist/cjs/lib.js", configs[0].Output.File)
	assert.Equal(t, "dist/esm/lib.mjs", configs[1].Output.File)
	assert.Equal(t, "Lib", configs[1].Output.Name)
}

func TestLoadConfigVerbose(t *testing.T) {
	root := newProject(t, strings.Replace(sampleManifest, `name = "Lib",`, `name = "Lib", verbose = True,`, 1))
	base := newBase(root, &fakeBundler{})
	base.Settings.Development = true

	logs := &syncBuffer{}
	require.NoError(t, base.LoadConfig(testContext(logs)))

	assert.Contains(t, logs.String(), "Using 'tsconfig.json' for 'dist/cjs/lib.js'")
	assert.Contains(t, logs.String(), `"stages":["resolve","typescript","json","downlevel","replace"]`)
}

func TestLoadConfigFaults(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		tsconfig bool
		code     faults.Code
	}{
		{"unknown format", `toolkit(input = "a.ts", output = "a", format = ["cjs", "amd"])`, true, faults.UnknownFormat},
		{"missing tsconfig", `toolkit(input = "a.ts", output = "a", format = ["cjs"])`, false, faults.TsconfigNotFound},
		{"no formats", `toolkit(input = "a.ts", output = "a", format = [])`, true, faults.ManifestInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newProject(t, tt.manifest)
			if !tt.tsconfig {
				require.NoError(t, os.Remove(filepath.Join(root, "tsconfig.json")))
			}

			base := newBase(root, &fakeBundler{})
			err := base.LoadConfig(context.Background())
			assert.Equal(t, tt.code, faults.CodeOf(err))
		})
	}
}

func TestLoadConfigMissingManifest(t *testing.T) {
	root := t.TempDir()
	base := newBase(root, &fakeBundler{})

	err := base.LoadConfig(context.Background())
	require.Error(t, err)
	assert.Equal(t, faults.FileNotFound, faults.CodeOf(err))
	assert.Contains(t, err.Error(), filepath.Join(root, "toolkit.star"))
	assert.Empty(t, base.Configs())
}

func TestBuildRun(t *testing.T) {
	root := newProject(t, sampleManifest)
	fake := &fakeBundler{root: root}
	build := NewBuild(newBase(root, fake))
	require.NoError(t, build.LoadConfig(context.Background()))

	logs := &syncBuffer{}
	require.NoError(t, build.Run(testContext(logs)))

	assert.Equal(t, []toolkit.Format{toolkit.FormatCJS, toolkit.FormatESM}, fake.compiled)

	content, err := os.ReadFile(filepath.Join(root, "dist", "esm", "lib.mjs"))
	require.NoError(t, err)
	assert.Equal(t, "export const lib = esm;", string(content))

	output := logs.String()
	assert.Contains(t, output, "Writing - 'cjs' bundle to 'dist/cjs/lib.js'")
	assert.Contains(t, output, "Writing - Done 'esm' bundle to 'dist/esm/lib.mjs' in ")
	assert.Equal(t, 1, strings.Count(output, separator), "separator only between bundles")
	assert.Less(t, strings.Index(output, "'cjs' bundle"), strings.Index(output, "'esm' bundle"))
}

func TestBuildRunStopsOnError(t *testing.T) {
	root := newProject(t, sampleManifest)
	fake := &fakeBundler{root: root, compileErr: faults.Wrap(faults.BuildFailed, eris.New("syntax error"), "failed to build")}
	build := NewBuild(newBase(root, fake))
	require.NoError(t, build.LoadConfig(context.Background()))

	err := build.Run(context.Background())
	assert.Equal(t, faults.BuildFailed, faults.CodeOf(err))
	assert.Equal(t, []toolkit.Format{toolkit.FormatCJS}, fake.compiled)
}

func TestBuildRunWithoutOutput(t *testing.T) {
	build := NewBuild(newBase(t.TempDir(), &fakeBundler{}))
	build.configs = []*toolkit.BuildConfiguration{{Input: "src/index.ts"}}

	err := build.Run(context.Background())
	require.Error(t, err)

	var fault *faults.Fault
	assert.False(t, errors.As(err, &fault), "a missing output is not a configuration fault")
}

func TestWatchRunWithoutOutput(t *testing.T) {
	fake := &fakeBundler{}
	watch := NewWatch(newBase(t.TempDir(), fake))
	watch.configs = []*toolkit.BuildConfiguration{{Input: "src/index.ts"}}

	err := watch.Run(context.Background())
	assert.Equal(t, faults.OutputNotFound, faults.CodeOf(err))
	assert.Empty(t, fake.watched)
}

func TestWatchHandleEventKeepsWatchingAfterError(t *testing.T) {
	root := newProject(t, sampleManifest)
	watch := NewWatch(newBase(root, &fakeBundler{}))
	require.NoError(t, watch.LoadConfig(context.Background()))

	screen := &bytes.Buffer{}
	watch.Out = screen

	logs := &syncBuffer{}
	ctx := testContext(logs)
	sub := &Subscription{Config: watch.Configs()[0]}

	watch.HandleEvent(ctx, sub, bundler.Event{Code: bundler.EventError, Error: eris.New("unexpected token")})
	watch.HandleEvent(ctx, sub, bundler.Event{Code: bundler.EventBundleStart})
	watch.HandleEvent(ctx, sub, bundler.Event{Code: bundler.EventBundleEnd})

	output := logs.String()
	errIdx := strings.Index(output, "Error - When processing: dist/cjs/lib.js")
	startIdx := strings.Index(output, "Watching - Start 'cjs' bundle to 'dist/cjs/lib.js'")
	endIdx := strings.Index(output, "Watching - Done 'cjs' bundle to 'dist/cjs/lib.js' in ")

	require.NotEqual(t, -1, errIdx)
	require.NotEqual(t, -1, startIdx)
	require.NotEqual(t, -1, endIdx)
	assert.Less(t, errIdx, startIdx)
	assert.Less(t, startIdx, endIdx)
	assert.Contains(t, output, "unexpected token")
	assert.Equal(t, clearSequence, screen.String())
	assert.False(t, sub.start.IsZero())
}

func TestWatchHandleEventWarnings(t *testing.T) {
	root := newProject(t, sampleManifest)
	watch := NewWatch(newBase(root, &fakeBundler{}))
	watch.Settings.ClearScreen = false
	require.NoError(t, watch.LoadConfig(context.Background()))

	var received []toolkit.Message
	cfg := watch.Configs()[1]
	cfg.OnWarn = func(msg toolkit.Message) { received = append(received, msg) }

	warning := toolkit.Message{Text: "unused variable", File: "src/index.ts", Line: 2}
	watch.HandleEvent(context.Background(), &Subscription{Config: cfg}, bundler.Event{
		Code:     bundler.EventBundleEnd,
		Warnings: []toolkit.Message{warning},
	})

	assert.Equal(t, []toolkit.Message{warning}, received)
}

func TestWatchRun(t *testing.T) {
	root := newProject(t, sampleManifest)
	fake := &fakeBundler{
		root: root,
		events: []bundler.Event{
			{Code: bundler.EventBundleStart},
			{Code: bundler.EventError, Error: eris.New("unexpected token")},
			{Code: bundler.EventBundleStart},
			{Code: bundler.EventBundleEnd},
		},
		watchers: 2,
	}

	watch := NewWatch(newBase(root, fake))
	watch.Settings.ClearScreen = false
	require.NoError(t, watch.LoadConfig(context.Background()))

	logs := &syncBuffer{}
	ctx, cancel := context.WithTimeout(testContext(logs), 10*time.Second)
	defer cancel()
	fake.watchDone = cancel

	require.NoError(t, watch.Run(ctx))

	assert.ElementsMatch(t, []toolkit.Format{toolkit.FormatCJS, toolkit.FormatESM}, fake.watched)

	output := logs.String()
	assert.Equal(t, 2, strings.Count(output, "Watching - Start 'cjs' bundle"))
	assert.Equal(t, 1, strings.Count(output, "Watching - Done 'cjs' bundle"))
	assert.Equal(t, 1, strings.Count(output, "Error - When processing: dist/esm/lib.mjs"))
	assert.Equal(t, 1, strings.Count(output, "Watching - Done 'esm' bundle"))
}

func TestWatchManifest(t *testing.T) {
	root := newProject(t, sampleManifest)
	path := filepath.Join(root, "toolkit.star")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- WatchManifest(ctx, path, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register before touching the file.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "other.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest+"\n"), 0644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("manifest change was not reported")
	}

	cancel()
	assert.NoError(t, <-done)
}
