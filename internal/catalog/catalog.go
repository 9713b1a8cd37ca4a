// Package catalog reads the installed games: one directory per game under
// the games root, holding meta.json and one subdirectory per version.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	MetaFile          = "meta.json"
	DefaultEntrypoint = "game-server"
	DefaultMaxPlayers = 2
)

var (
	ErrGameNotFound       = errors.New("game_not_found")
	ErrVersionMissing     = errors.New("game_version_missing")
	ErrEntrypointNotFound = errors.New("entrypoint_not_found")
	ErrInvalidName        = errors.New("invalid_game_name")
)

type Meta struct {
	GameName      string            `json:"game_name"`
	Developer     string            `json:"developer"`
	Description   string            `json:"description,omitempty"`
	LatestVersion string            `json:"latest_version"`
	MaxPlayers    int               `json:"max_players"`
	Entrypoint    string            `json:"entrypoint,omitempty"`
	Versions      map[string]string `json:"versions,omitempty"`
}

type Catalog struct {
	dir string
}

func New(dir string) *Catalog {
	return &Catalog{dir: dir}
}

func (c *Catalog) Dir() string {
	return c.dir
}

// Meta loads a game's metadata, filling defaults for missing fields.
func (c *Catalog) Meta(game string) (Meta, error) {
	if err := validName(game); err != nil {
		return Meta{}, err
	}
	b, err := os.ReadFile(filepath.Join(c.dir, game, MetaFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Meta{}, ErrGameNotFound
	}
	if err != nil {
		return Meta{}, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, fmt.Errorf("decode %s meta: %w", game, err)
	}
	m.GameName = game
	if m.Developer == "" {
		m.Developer = "unknown"
	}
	if m.MaxPlayers <= 0 {
		m.MaxPlayers = DefaultMaxPlayers
	}
	if m.Entrypoint == "" {
		m.Entrypoint = DefaultEntrypoint
	}
	return m, nil
}

// List returns every game with readable metadata, sorted by name. Games
// with broken metadata are skipped.
func (c *Catalog) List() ([]Meta, error) {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Meta{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Meta, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := c.Meta(e.Name())
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameName < out[j].GameName })
	return out, nil
}

// Latest resolves the version new rooms are created with.
func (c *Catalog) Latest(game string) (Meta, error) {
	m, err := c.Meta(game)
	if err != nil {
		return Meta{}, err
	}
	if m.LatestVersion == "" {
		return Meta{}, ErrVersionMissing
	}
	return m, nil
}

// Entrypoint returns the absolute path of the executable that serves a
// session of game at version.
func (c *Catalog) Entrypoint(game, version string) (string, error) {
	m, err := c.Meta(game)
	if err != nil {
		return "", err
	}
	if err := validName(version); err != nil {
		return "", ErrVersionMissing
	}
	entry := filepath.Clean(m.Entrypoint)
	if filepath.IsAbs(entry) || strings.HasPrefix(entry, "..") {
		return "", fmt.Errorf("%w: %s", ErrEntrypointNotFound, m.Entrypoint)
	}
	path, err := filepath.Abs(filepath.Join(c.dir, game, version, entry))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%w: %s", ErrEntrypointNotFound, path)
	}
	return path, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ErrInvalidName
	}
	return nil
}
