package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

// tokenFile is the YAML structure of an external token file.
type tokenFile struct {
	Tokens []TokenInfo `yaml:"tokens"`
}

// FileStore loads tokens from a YAML file and hot-reloads them when the file
// changes. Reloaded tokens are overlaid on the inline configuration: the
// combined set replaces the verifier's allowlist atomically.
type FileStore struct {
	path     string
	inline   []TokenInfo
	verifier *StaticVerifier
	watcher  *fsnotify.Watcher
	logger   *logging.Logger
	done     chan struct{}
}

// NewFileStore creates a file store for the given token file. The inline
// tokens come from the main configuration and survive every reload.
func NewFileStore(path string, inline []TokenInfo, verifier *StaticVerifier, logger *logging.Logger) (*FileStore, error) {
	fs := &FileStore{
		path:     path,
		inline:   inline,
		verifier: verifier,
		logger:   logger.Component("auth.filestore"),
		done:     make(chan struct{}),
	}

	if err := fs.load(); err != nil {
		return nil, err
	}

	return fs, nil
}

// load reads the token file and replaces the verifier's allowlist with the
// inline tokens plus the file contents.
func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return fmt.Errorf("reading token file %q: %w", fs.path, err)
	}

	var tf tokenFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("parsing token file %q: %w", fs.path, err)
	}

	combined := make([]TokenInfo, 0, len(fs.inline)+len(tf.Tokens))
	combined = append(combined, fs.inline...)
	combined = append(combined, tf.Tokens...)
	fs.verifier.Replace(combined)

	fs.logger.Info("token file loaded",
		"path", fs.path,
		"file_tokens", len(tf.Tokens),
		"total_tokens", fs.verifier.Len(),
	)

	return nil
}

// Watch starts watching the token file for changes. Editors and secret
// mounts often replace the file rather than write in place, so the parent
// directory is watched and events are filtered by name.
func (fs *FileStore) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	fs.watcher = watcher

	dir := filepath.Dir(fs.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %q: %w", dir, err)
	}

	go fs.run()
	return nil
}

func (fs *FileStore) run() {
	target := filepath.Clean(fs.path)
	for {
		select {
		case <-fs.done:
			return
		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := fs.load(); err != nil {
				// Keep serving the previous allowlist on a bad reload.
				fs.logger.Error("token file reload failed", "error", err)
			}
		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			fs.logger.Error("token file watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (fs *FileStore) Close() error {
	close(fs.done)
	if fs.watcher != nil {
		return fs.watcher.Close()
	}
	return nil
}
