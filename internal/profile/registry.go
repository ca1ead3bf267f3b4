package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Registry manages the collection of profiles stored as one YAML file per
// profile under a base directory.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	basePath string
}

// NewRegistry creates a registry rooted at basePath. The directory is
// created if missing.
func NewRegistry(basePath string) (*Registry, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory %s: %w", basePath, err)
	}
	return &Registry{
		profiles: make(map[string]*Profile),
		basePath: basePath,
	}, nil
}

// LoadAll reads every YAML file in the base directory. Files that fail to
// parse or validate are skipped and reported; one bad profile must not take
// down the rest.
func (r *Registry) LoadAll() []error {
	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return []error{fmt.Errorf("failed to read profile directory %s: %w", r.basePath, err)}
	}

	var loadErrors []error

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(r.basePath, entry.Name())
		profile, err := readProfile(path)
		if err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("file %s: %w", entry.Name(), err))
			continue
		}
		r.profiles[profile.Name] = profile
	}

	return loadErrors
}

// Get retrieves a profile by name.
func (r *Registry) Get(name string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[name]
	if !ok {
		return nil, false
	}
	clone := *profile
	return &clone, true
}

// Save validates a profile, writes it to disk, and registers it. An
// existing profile with the same name is replaced.
func (r *Registry) Save(profile *Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	clone := *profile
	clone.ModifiedAt = time.Now()

	data, err := yaml.Marshal(&clone)
	if err != nil {
		return fmt.Errorf("failed to marshal profile %s: %w", clone.Name, err)
	}

	path := r.profilePath(clone.Name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile %s: %w", clone.Name, err)
	}

	r.mu.Lock()
	r.profiles[clone.Name] = &clone
	r.mu.Unlock()
	return nil
}

// Delete removes a profile from disk and the registry.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[name]; !ok {
		return fmt.Errorf("profile %q not found", name)
	}

	if err := os.Remove(r.profilePath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete profile %s: %w", name, err)
	}
	delete(r.profiles, name)
	return nil
}

// Has checks whether a profile exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.profiles[name]
	return ok
}

// List returns all profile names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of loaded profiles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

func (r *Registry) profilePath(name string) string {
	return filepath.Join(r.basePath, sanitizeFileName(name)+".yaml")
}

func readProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile YAML: %w", err)
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// sanitizeFileName keeps profile names usable as file names.
func sanitizeFileName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	)
	return replacer.Replace(name)
}
