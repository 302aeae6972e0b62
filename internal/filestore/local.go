package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type localConfig struct {
	Dir string `json:"dir"`
}

type localStore struct {
	dir string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	return &localStore{dir: config.Dir}, nil
}

func (s *localStore) Save(ctx context.Context, key string, data []byte) error {
	_ = ctx
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(s.dir, key+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(s.dir, key))
}

func (s *localStore) Load(ctx context.Context, key string) ([]byte, error) {
	_ = ctx
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.dir, key))
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("blob key is required")
	}
	if strings.Contains(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid blob key")
	}
	return nil
}
