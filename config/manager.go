package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"ccsw/config/models"
	"ccsw/config/storage"
	"ccsw/config/validation"

	log "github.com/sirupsen/logrus"
)

// Manager loads and saves the unified site store
type Manager struct {
	paths     PathsConfig
	validator *validation.Validator
	mu        sync.Mutex
}

// NewManager creates a Manager for the store at paths.Store
func NewManager(paths PathsConfig) *Manager {
	return &Manager{
		paths:     paths,
		validator: validation.NewValidator(),
	}
}

// Paths returns the paths the manager was built with
func (m *Manager) Paths() PathsConfig {
	return m.paths
}

// StorePath returns the path of the store file
func (m *Manager) StorePath() string {
	return m.paths.Store
}

// Validator returns the site validator
func (m *Manager) Validator() *validation.Validator {
	return m.validator
}

func (m *Manager) lockPath() string {
	return m.paths.Store + ".lock"
}

// withLock runs fn while holding the store's advisory lock. The lock lives
// in a sidecar file because saves replace the store file itself.
func (m *Manager) withLock(exclusive bool, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(m.paths.Store), 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	lock, err := os.OpenFile(m.lockPath(), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lock.Close()

	if exclusive {
		err = lockFileExclusive(lock)
	} else {
		err = lockFileShared(lock)
	}
	if err != nil {
		return fmt.Errorf("failed to lock store: %w", err)
	}
	defer func() {
		if err := unlockFile(lock); err != nil {
			log.WithField("path", m.lockPath()).Warnf("failed to unlock store: %v", err)
		}
	}()
	return fn()
}

// migrateLegacy copies a store from the legacy location on first use
func (m *Manager) migrateLegacy() {
	migrated, err := storage.MigrateFile(m.paths.LegacyStore, m.paths.Store)
	if err != nil {
		log.WithField("path", m.paths.LegacyStore).Warnf("failed to migrate legacy store: %v", err)
		return
	}
	if migrated {
		log.WithField("path", m.paths.Store).Infof("migrated store from %s", m.paths.LegacyStore)
	}
}

// Load reads the store. An absent file is a NotFoundError, malformed JSON a
// ParseError; an empty file is an empty store.
func (m *Manager) Load() (*models.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Manager) load() (*models.Store, error) {
	m.migrateLegacy()
	if !storage.FileExists(m.paths.Store) {
		return nil, &models.NotFoundError{Path: m.paths.Store}
	}

	var data []byte
	err := m.withLock(false, func() error {
		var err error
		data, err = os.ReadFile(m.paths.Store)
		return err
	})
	if os.IsNotExist(err) {
		return nil, &models.NotFoundError{Path: m.paths.Store}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	return decodeStore(m.paths.Store, data)
}

func decodeStore(path string, data []byte) (*models.Store, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.NewStore(), nil
	}

	var store models.Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, &models.ParseError{Path: path, Err: err}
	}
	if store.Sites == nil {
		store.Sites = map[string]*models.SiteEntry{}
	}
	for key, site := range store.Sites {
		if site == nil {
			delete(store.Sites, key)
		}
	}
	log.WithField("path", path).Debugf("loaded %d sites", len(store.Sites))
	return &store, nil
}

// LoadOrEmpty is Load, except that an absent store is an empty one
func (m *Manager) LoadOrEmpty() (*models.Store, error) {
	store, err := m.Load()
	if err != nil {
		var notFound *models.NotFoundError
		if errors.As(err, &notFound) {
			return models.NewStore(), nil
		}
		return nil, err
	}
	return store, nil
}

// Save writes the store atomically
func (m *Manager) Save(store *models.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(store)
}

func (m *Manager) save(store *models.Store) error {
	if store.Sites == nil {
		store.Sites = map[string]*models.SiteEntry{}
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize store: %w", err)
	}
	data = append(data, '\n')

	err = m.withLock(true, func() error {
		return storage.AtomicWritePrivate(m.paths.Store, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	log.WithField("path", m.paths.Store).Debugf("saved %d sites", len(store.Sites))
	return nil
}

// update loads the store (empty if absent), applies fn and saves it
func (m *Manager) update(fn func(*models.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	store, err := m.load()
	if err != nil {
		var notFound *models.NotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		store = models.NewStore()
	}
	if err := fn(store); err != nil {
		return err
	}
	return m.save(store)
}

// AddSite validates entry and stores it under key, replacing any previous entry
func (m *Manager) AddSite(key string, entry *models.SiteEntry) error {
	if err := m.validator.ValidateSite(key, entry); err != nil {
		return err
	}
	return m.update(func(store *models.Store) error {
		if _, exists := store.Sites[key]; exists {
			log.WithField("site", key).Info("replacing existing site")
		}
		store.Sites[key] = entry
		return nil
	})
}

// RemoveSite deletes a site and clears every active selection pointing at it
func (m *Manager) RemoveSite(key string) error {
	return m.update(func(store *models.Store) error {
		if _, ok := store.Sites[key]; !ok {
			return fmt.Errorf("site '%s' not found", key)
		}
		delete(store.Sites, key)

		if store.CurrentConfig != nil && store.CurrentConfig.Site == key {
			store.CurrentConfig = nil
		}
		if store.CurrentCodexConfig != nil && store.CurrentCodexConfig.Site == key {
			store.CurrentCodexConfig = nil
		}
		if store.CurrentIflowConfig != nil && store.CurrentIflowConfig.Site == key {
			store.CurrentIflowConfig = nil
		}
		return nil
	})
}

// Site returns the entry stored under key
func (m *Manager) Site(key string) (*models.SiteEntry, error) {
	store, err := m.Load()
	if err != nil {
		return nil, err
	}
	site, ok := store.Sites[key]
	if !ok {
		return nil, fmt.Errorf("site '%s' not found", key)
	}
	return site, nil
}

// SiteKeys returns the store's site keys, sorted
func SiteKeys(store *models.Store) []string {
	keys := make([]string, 0, len(store.Sites))
	for k := range store.Sites {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SiteKeys returns the stored site keys, sorted
func (m *Manager) SiteKeys() ([]string, error) {
	store, err := m.Load()
	if err != nil {
		return nil, err
	}
	return SiteKeys(store), nil
}

// SetActive records sel as the active selection for tool and saves the store
func (m *Manager) SetActive(tool string, sel *models.ActiveSelection) error {
	return m.update(func(store *models.Store) error {
		return SetActiveIn(store, tool, sel)
	})
}

// SetActiveIn sets the selection field of store that belongs to tool
func SetActiveIn(store *models.Store, tool string, sel *models.ActiveSelection) error {
	switch tool {
	case ToolClaude:
		store.CurrentConfig = sel
	case ToolCodex:
		store.CurrentCodexConfig = sel
	case ToolIflow:
		store.CurrentIflowConfig = sel
	default:
		return fmt.Errorf("unknown tool: %s", tool)
	}
	return nil
}

// Active returns the recorded selection for tool, nil if none
func Active(store *models.Store, tool string) *models.ActiveSelection {
	switch tool {
	case ToolClaude:
		return store.CurrentConfig
	case ToolCodex:
		return store.CurrentCodexConfig
	case ToolIflow:
		return store.CurrentIflowConfig
	}
	return nil
}
