package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"github.com/wricardo/socialspot/room/games"
)

//go:embed default.json
var defaultPack []byte

var (
	ErrInvalidPack       = errors.New("invalid content pack")
	ErrUnsupportedFormat = errors.New("unsupported content pack format")
)

// PoolInfo describes one content pool of the loaded pack.
type PoolInfo struct {
	Kind  games.Kind `json:"kind"`
	Items int        `json:"items"`
}

// Manager holds the active content pack
type Manager struct {
	source string
	pack   *games.Pack
	mu     sync.RWMutex
}

// NewManager loads the pack at path, or the embedded default when path is empty.
func NewManager(path string) (*Manager, error) {
	var (
		pack *games.Pack
		err  error
	)
	if path == "" {
		pack, err = Default()
		path = "default"
	} else {
		pack, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	return &Manager{source: path, pack: pack}, nil
}

// Pack returns the active pack.
func (m *Manager) Pack() *games.Pack {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pack
}

// Source returns the file the pack was loaded from, or "default".
func (m *Manager) Source() string {
	return m.source
}

// Reload re-reads the pack from its source file. The active pack is kept when
// the file no longer loads; the embedded default never changes.
func (m *Manager) Reload() error {
	if m.source == "default" {
		return nil
	}

	pack, err := Load(m.source)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.pack = pack
	m.mu.Unlock()
	return nil
}

// Catalog lists the pool sizes of the active pack.
func (m *Manager) Catalog() []PoolInfo {
	pack := m.Pack()

	result := make([]PoolInfo, 0, len(games.Kinds()))
	for _, k := range games.Kinds() {
		result = append(result, PoolInfo{Kind: k, Items: pack.Size(k)})
	}
	return result
}

// Default decodes the embedded default pack.
func Default() (*games.Pack, error) {
	return Decode(bytes.NewReader(defaultPack), "json")
}

// Load reads and validates the pack file at path.
func Load(path string) (*games.Pack, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !supportedFormat(format) {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read content pack %s: %w", path, err)
	}

	return unmarshal(v, path)
}

// Decode reads a pack from r in the given format (json, yaml, yml or toml).
func Decode(r io.Reader, format string) (*games.Pack, error) {
	if !supportedFormat(format) {
		return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}

	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("failed to parse content pack: %w", err)
	}

	return unmarshal(v, format)
}

func unmarshal(v *viper.Viper, name string) (*games.Pack, error) {
	var pack games.Pack
	if err := v.Unmarshal(&pack); err != nil {
		return nil, fmt.Errorf("failed to decode content pack %s: %w", name, err)
	}

	if errs := pack.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidPack, name, errors.Join(errs...))
	}

	return &pack, nil
}

func supportedFormat(format string) bool {
	switch format {
	case "json", "yaml", "yml", "toml":
		return true
	}
	return false
}
