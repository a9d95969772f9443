package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store persists the whole ledger.
type Store interface {
	Load(ctx context.Context) ([]Order, error)
	Save(ctx context.Context, orders []Order) error
}

// FileStore keeps the ledger as a JSON array. Every Save rewrites the file
// through a temp file and a rename so a crash never leaves it truncated.
type FileStore struct {
	path       string
	legacyPath string
	logger     *log.Logger

	mu sync.Mutex
}

func NewFileStore(path, legacyPath string, logger *log.Logger) *FileStore {
	return &FileStore{path: path, legacyPath: legacyPath, logger: logger}
}

func (s *FileStore) Path() string {
	return s.path
}

// Migrate prepares the canonical file once at startup: a ledger found only
// at the legacy path (or in the legacy record layout) is rewritten to the
// canonical path, and a missing ledger is initialised empty.
func (s *FileStore) Migrate(ctx context.Context) error {
	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		orders, legacy, err := decodeLedger(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", s.path, err)
		}
		if legacy {
			s.logger.Printf("ledger: upgrading %d orders in %s to current format", len(orders), s.path)
			return s.Save(ctx, orders)
		}
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	if s.legacyPath != "" {
		data, err := os.ReadFile(s.legacyPath)
		switch {
		case err == nil:
			orders, _, err := decodeLedger(data)
			if err != nil {
				return fmt.Errorf("decode legacy %s: %w", s.legacyPath, err)
			}
			s.logger.Printf("ledger: migrating %d orders from %s to %s", len(orders), s.legacyPath, s.path)
			return s.Save(ctx, orders)
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("read legacy %s: %w", s.legacyPath, err)
		}
	}

	s.logger.Printf("ledger: no existing ledger, creating %s", s.path)
	return s.Save(ctx, nil)
}

func (s *FileStore) Load(ctx context.Context) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	orders, _, err := decodeLedger(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return orders, nil
}

func (s *FileStore) Save(ctx context.Context, orders []Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make([]Order, len(orders))
	copy(sorted, orders)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp ledger: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// decodeLedger accepts the current layout and the legacy one, reporting
// which was found.
func decodeLedger(data []byte) ([]Order, bool, error) {
	var orders []Order
	err := json.Unmarshal(data, &orders)
	if err == nil {
		return orders, false, nil
	}

	var legacy []legacyOrder
	if lerr := json.Unmarshal(data, &legacy); lerr != nil {
		return nil, false, err
	}
	out := make([]Order, len(legacy))
	for i, lo := range legacy {
		out[i] = lo.toOrder()
	}
	return out, true, nil
}
