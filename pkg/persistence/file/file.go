// Package file provides file-based persistence for development and tests.
// Entities are stored as one JSON document per record under the root
// directory; it is not safe for concurrent use across processes.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/driplinehq/dripline/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local filesystem.
type Persistence struct {
	root string
	// Guards step numbering: CreateStep counts existing steps and the
	// count-then-write pair must be atomic within the process.
	mu sync.Mutex

	workflows  *WorkflowRepository
	executions *ExecutionRepository
	steps      *StepRepository
	leads      *LeadRepository
}

func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.workflows = &WorkflowRepository{persistence: p}
	p.executions = &ExecutionRepository{persistence: p}
	p.steps = &StepRepository{persistence: p}
	p.leads = &LeadRepository{persistence: p}

	return p
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) Executions() persistence.ExecutionRepository {
	return p.executions
}

func (p *Persistence) Steps() persistence.StepRepository {
	return p.steps
}

func (p *Persistence) Leads() persistence.LeadRepository {
	return p.leads
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) write(dir, id string, entity any) error {
	fullDir := filepath.Join(p.root, dir)

	err := os.MkdirAll(fullDir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fullDir, err)
	}

	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", dir, id, err)
	}

	err = os.WriteFile(filepath.Join(fullDir, id+".json"), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", dir, id, err)
	}

	return nil
}

func (p *Persistence) read(dir, id string, entity any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(p.root, dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s/%s: %w", dir, id, err)
	}

	err = json.Unmarshal(data, entity)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal %s/%s: %w", dir, id, err)
	}

	return true, nil
}

func (p *Persistence) listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	return names, nil
}

func (p *Persistence) list(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}
