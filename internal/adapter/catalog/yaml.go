// Package catalog serves bot definitions from a directory of YAML files,
// one bot per file.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/ports"
)

var _ ports.Catalog = (*YAMLCatalog)(nil)

type YAMLCatalog struct {
	dir string
	log *zap.Logger

	mu    sync.RWMutex
	bots  map[string]*definition
	raw   map[string][]byte
	files map[string]string
}

// NewYAMLCatalog loads every *.yaml and *.yml file under dir.
func NewYAMLCatalog(dir string, log *zap.Logger) (*YAMLCatalog, error) {
	c := &YAMLCatalog{
		dir:   dir,
		log:   log,
		bots:  make(map[string]*definition),
		raw:   make(map[string][]byte),
		files: make(map[string]string),
	}
	if _, err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *YAMLCatalog) Dir() string { return c.dir }

// Reload re-reads the directory and returns the ids of bots whose file
// content changed, appeared or disappeared. A file that fails to parse
// keeps its previous definition and is reported in the error.
func (c *YAMLCatalog) Reload() ([]string, error) {
	paths, err := listDefinitions(c.dir)
	if err != nil {
		return nil, err
	}

	bots := make(map[string]*definition, len(paths))
	raw := make(map[string][]byte, len(paths))
	files := make(map[string]string, len(paths))
	var errs []string

	c.mu.RLock()
	previous := c.files
	c.mu.RUnlock()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		def, err := parse(data)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))
			c.keepPrevious(path, previous, bots, raw, files)
			continue
		}
		if other, dup := files[def.bot.ID]; dup {
			errs = append(errs, fmt.Sprintf("%s: bot %q already defined in %s", path, def.bot.ID, other))
			continue
		}
		bots[def.bot.ID] = def
		raw[def.bot.ID] = data
		files[def.bot.ID] = path
	}

	c.mu.Lock()
	var changed []string
	for id, data := range raw {
		if old, ok := c.raw[id]; !ok || !bytes.Equal(old, data) {
			changed = append(changed, id)
		}
	}
	for id := range c.raw {
		if _, ok := raw[id]; !ok {
			changed = append(changed, id)
		}
	}
	c.bots, c.raw, c.files = bots, raw, files
	c.mu.Unlock()

	sort.Strings(changed)
	if len(changed) > 0 {
		c.log.Info("catalog reloaded", zap.Strings("changed", changed), zap.Int("bots", len(bots)))
	}
	if len(errs) > 0 {
		return changed, fmt.Errorf("catalog: %s", strings.Join(errs, "; "))
	}
	return changed, nil
}

func (c *YAMLCatalog) keepPrevious(path string, previous map[string]string, bots map[string]*definition, raw map[string][]byte, files map[string]string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id, p := range previous {
		if p == path {
			bots[id] = c.bots[id]
			raw[id] = c.raw[id]
			files[id] = p
		}
	}
}

func (c *YAMLCatalog) lookup(botID string) (*definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.bots[botID]
	if !ok {
		return nil, domain.ErrBotNotFound
	}
	return def, nil
}

func (c *YAMLCatalog) GetBotConfig(ctx context.Context, botID string) (*domain.BotConfig, error) {
	def, err := c.lookup(botID)
	if err != nil {
		return nil, err
	}
	bot := def.bot
	return &bot, nil
}

func (c *YAMLCatalog) GetIntents(ctx context.Context, botID string) ([]domain.Intent, error) {
	def, err := c.lookup(botID)
	if err != nil {
		return nil, err
	}
	return append([]domain.Intent(nil), def.intents...), nil
}

func (c *YAMLCatalog) GetEntityDefinitions(ctx context.Context, botID string) ([]domain.EntityDefinition, error) {
	def, err := c.lookup(botID)
	if err != nil {
		return nil, err
	}
	return append([]domain.EntityDefinition(nil), def.entities...), nil
}

func (c *YAMLCatalog) ListBots(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.bots))
	for id := range c.bots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func listDefinitions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: read dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isDefinition(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func isDefinition(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
