package themes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrThemeNotFound = errors.New("theme not found")
	ErrInvalidTheme  = errors.New("invalid theme")
)

// DefaultThemeName is used when a request does not name a theme.
const DefaultThemeName = "default"

// Theme is a named pool of card faces.
type Theme struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Cards       []string `json:"cards"`
}

// Info is the listing entry for a theme.
type Info struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	CardsAvailable int    `json:"cardsAvailable"`
}

// Manager loads and caches themes from a directory of JSON files.
type Manager struct {
	themesDir string
	themes    map[string]*Theme
	mu        sync.RWMutex
}

// NewManager creates a theme manager over the given directory.
func NewManager(themesDir string) (*Manager, error) {
	if _, err := os.Stat(themesDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("themes directory does not exist: %s", themesDir)
	}

	return &Manager{
		themesDir: themesDir,
		themes:    make(map[string]*Theme),
	}, nil
}

// Get loads a theme by name, consulting the cache first.
func (m *Manager) Get(name string) (*Theme, error) {
	if name == "" {
		name = DefaultThemeName
	}

	m.mu.RLock()
	if theme, exists := m.themes[name]; exists {
		m.mu.RUnlock()
		return theme, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock.
	if theme, exists := m.themes[name]; exists {
		return theme, nil
	}

	theme, err := m.loadFromFile(name)
	if err != nil {
		if name == DefaultThemeName && errors.Is(err, ErrThemeNotFound) {
			theme = builtinDefault()
		} else {
			return nil, err
		}
	}

	m.themes[name] = theme
	return theme, nil
}

// CardsAvailable returns the size of the theme's value pool. The catalog
// must be consulted before generating a deck so creation can fail cleanly
// on boards too large for the theme.
func (m *Manager) CardsAvailable(name string) (int, error) {
	theme, err := m.Get(name)
	if err != nil {
		return 0, err
	}
	return len(theme.Cards), nil
}

// GetDefault returns the default theme, falling back to a built-in pool
// when no default file exists.
func (m *Manager) GetDefault() *Theme {
	theme, err := m.Get(DefaultThemeName)
	if err != nil {
		return builtinDefault()
	}
	return theme
}

// List returns info for every theme file in the directory.
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.themesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read themes directory: %w", err)
	}

	var infos []*Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		theme, err := m.Get(name)
		if err != nil {
			continue // broken file, listing keeps going
		}

		infos = append(infos, &Info{
			Name:           name,
			Description:    theme.Description,
			CardsAvailable: len(theme.Cards),
		})
	}

	return infos, nil
}

// Save writes a theme to the directory and refreshes the cache.
func (m *Manager) Save(name string, theme *Theme) error {
	if err := Validate(theme); err != nil {
		return err
	}

	data, err := json.MarshalIndent(theme, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal theme: %w", err)
	}

	path := filepath.Join(m.themesDir, name+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write theme file: %w", err)
	}

	m.mu.Lock()
	m.themes[name] = theme
	m.mu.Unlock()

	return nil
}

// Validate checks a theme's structural invariants: a name, a non-empty
// pool, and no duplicate faces (duplicates would break the two-cards-per-
// value guarantee).
func Validate(theme *Theme) error {
	if theme == nil {
		return fmt.Errorf("%w: nil theme", ErrInvalidTheme)
	}
	if theme.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidTheme)
	}
	if len(theme.Cards) == 0 {
		return fmt.Errorf("%w: theme %q has no cards", ErrInvalidTheme, theme.Name)
	}

	seen := make(map[string]bool, len(theme.Cards))
	for _, card := range theme.Cards {
		if card == "" {
			return fmt.Errorf("%w: theme %q has an empty card face", ErrInvalidTheme, theme.Name)
		}
		if seen[card] {
			return fmt.Errorf("%w: theme %q repeats card face %q", ErrInvalidTheme, theme.Name, card)
		}
		seen[card] = true
	}

	return nil
}

func (m *Manager) loadFromFile(name string) (*Theme, error) {
	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}

	data, err := os.ReadFile(filepath.Join(m.themesDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrThemeNotFound, name)
		}
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}

	var theme Theme
	if err := json.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTheme, name, err)
	}
	if err := Validate(&theme); err != nil {
		return nil, err
	}

	return &theme, nil
}

// builtinDefault is a numeric pool large enough for boards up to 8x8.
func builtinDefault() *Theme {
	cards := make([]string, 32)
	for i := range cards {
		cards[i] = fmt.Sprintf("card-%02d", i+1)
	}
	return &Theme{
		Name:        "Default",
		Description: "Built-in numeric card faces",
		Cards:       cards,
	}
}
