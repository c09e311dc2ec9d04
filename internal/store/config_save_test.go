package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
)

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("PAGEMGR_CONFIG_DIR", cfgDir)

	if err := SaveConfig(&GlobalConfig{CurrentWorkspace: "seed"}); err != nil {
		t.Fatalf("SaveConfig(seed): %v", err)
	}

	const n = 64
	errCh := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			cfg, err := LoadConfig()
			if err != nil {
				errCh <- err
				return
			}
			cfg.CurrentWorkspace = fmt.Sprintf("ws-%d", i)
			cfg.DefaultOutputDir = fmt.Sprintf("/tmp/out-%d", i)
			if err := SaveConfig(cfg); err != nil {
				errCh <- err
			}
		}(i)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent SaveConfig: %v", err)
	}
	if t.Failed() {
		return
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config.json: %v", err)
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("config.json corrupted/unparseable: %v\nraw:\n%s", err, string(raw))
	}
	if !strings.HasPrefix(cfg.CurrentWorkspace, "ws-") {
		t.Fatalf("unexpected final config: %+v", cfg)
	}

	ents, err := os.ReadDir(cfgDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, "config.json.") && strings.HasSuffix(name, ".tmp") {
			t.Fatalf("leftover temp file: %s", name)
		}
	}
}

func TestLoadConfig_RejectsCorruptFile(t *testing.T) {
	t.Setenv("PAGEMGR_CONFIG_DIR", t.TempDir())
	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err = LoadConfig()
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error naming %s, got %v", path, err)
	}
}
