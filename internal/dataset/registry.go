package dataset

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/verte-zerg/impromptu/internal/model"
)

//go:embed data/*.yaml
var builtinFS embed.FS

// DefaultKey is the dataset used when none is configured.
const DefaultKey = "ncfca_impromptu"

const fileExt = ".yaml"

// ErrUnknown reports a dataset key that is not registered.
var ErrUnknown = errors.New("unknown dataset")

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Info describes a registered dataset without its topics.
type Info struct {
	Key        string
	Name       string
	Tagline    string
	Builtin    bool
	Path       string
	Categories int
	Topics     int
}

// Registry resolves dataset keys to built-in or user-provided files.
type Registry struct {
	userDir string
	builtin fs.FS
}

// NewRegistry returns a registry that also reads *.yaml files from userDir.
func NewRegistry(userDir string) *Registry {
	sub, err := fs.Sub(builtinFS, "data")
	if err != nil {
		// The embed pattern guarantees the directory exists.
		panic(err)
	}
	return &Registry{userDir: userDir, builtin: sub}
}

// List returns all datasets sorted by key. User files override built-ins
// with the same key; unreadable user files are skipped.
func (r *Registry) List() ([]Info, error) {
	byKey := map[string]Info{}
	entries, err := fs.ReadDir(r.builtin, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read built-in datasets: %w", err)
	}
	for _, e := range entries {
		key, ok := keyFromFile(e.Name())
		if !ok {
			continue
		}
		ds, err := r.loadBuiltin(key)
		if err != nil {
			return nil, err
		}
		byKey[key] = infoFor(ds, true, "")
	}

	userEntries, err := os.ReadDir(r.userDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}
	for _, e := range userEntries {
		if e.IsDir() {
			continue
		}
		key, ok := keyFromFile(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(r.userDir, e.Name())
		ds, err := loadFile(key, path)
		if err != nil {
			continue
		}
		byKey[key] = infoFor(ds, false, path)
	}

	out := make([]Info, 0, len(byKey))
	for _, info := range byKey {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Load reads the dataset registered under key.
func (r *Registry) Load(ctx context.Context, key string) (model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return model.Dataset{}, err
	}
	if !keyPattern.MatchString(key) {
		return model.Dataset{}, fmt.Errorf("%w: %q", ErrUnknown, key)
	}
	if r.userDir != "" {
		path := filepath.Join(r.userDir, key+fileExt)
		if _, err := os.Stat(path); err == nil {
			return loadFile(key, path)
		}
	}
	ds, err := r.loadBuiltin(key)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Dataset{}, fmt.Errorf("%w: %q", ErrUnknown, key)
	}
	return ds, err
}

// Import validates a dataset file and installs it into the user directory.
// The key is derived from the file name.
func (r *Registry) Import(path string, force bool) (Info, error) {
	key, ok := keyFromFile(filepath.Base(path))
	if !ok {
		return Info{}, fmt.Errorf("dataset file name must be <key>%s with a lowercase key: %s", fileExt, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read dataset: %w", err)
	}
	ds, err := Parse(key, data)
	if err != nil {
		return Info{}, err
	}
	outPath := filepath.Join(r.userDir, key+fileExt)
	if !force {
		if _, err := os.Stat(outPath); err == nil {
			return Info{}, fmt.Errorf("dataset already exists: %s (use --force to overwrite)", outPath)
		} else if !os.IsNotExist(err) {
			return Info{}, fmt.Errorf("failed to stat dataset: %w", err)
		}
	}
	if err := writeAtomic(outPath, data); err != nil {
		return Info{}, err
	}
	return infoFor(ds, false, outPath), nil
}

func (r *Registry) loadBuiltin(key string) (model.Dataset, error) {
	data, err := fs.ReadFile(r.builtin, key+fileExt)
	if err != nil {
		return model.Dataset{}, err
	}
	return Parse(key, data)
}

func loadFile(key, path string) (model.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to read dataset: %w", err)
	}
	return Parse(key, data)
}

func keyFromFile(name string) (string, bool) {
	if !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	key := strings.TrimSuffix(name, fileExt)
	return key, keyPattern.MatchString(key)
}

func infoFor(ds model.Dataset, builtin bool, path string) Info {
	return Info{
		Key:        ds.Key,
		Name:       ds.Name,
		Tagline:    ds.Tagline,
		Builtin:    builtin,
		Path:       path,
		Categories: len(ds.Categories),
		Topics:     ds.TopicCount(),
	}
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dataset dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "dataset-*"+fileExt)
	if err != nil {
		return fmt.Errorf("failed to create temp dataset: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close dataset: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}
