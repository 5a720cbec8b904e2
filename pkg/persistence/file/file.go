// Package file provides a file-based persistence implementation for approval workflows.
//
// Workflow definitions are stored one JSON file per workflow under <root>/workflows.
// Documents, approval records and step resolutions live in a single snapshot file,
// <root>/approvals.json, rewritten atomically at the end of every unit of work. Units of
// work are serialized by a process-wide lock, so the store is meant for development and
// tests with a single process writing to the root directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/docflow/pkg/persistence"
)

const snapshotFile = "approvals.json"

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	mu           sync.RWMutex
	snapshot     *snapshot
	workflowRepo *WorkflowRepository
	approvalRepo *ApprovalRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.workflowRepo = NewWorkflowRepository(cleanRoot)
	p.approvalRepo = &ApprovalRepository{persistence: p}

	return p
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// WorkflowRepository returns the workflow repository implementation for file persistence.
func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

// ApprovalRepository returns the read-side approval repository.
func (fp *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return fp.approvalRepo
}

// Transact runs fn against a private copy of the snapshot and publishes the copy only
// when fn succeeds and the copy was written to disk.
func (fp *Persistence) Transact(ctx context.Context, fn func(ctx context.Context, tx persistence.Tx) error) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	current, err := fp.loadLocked()
	if err != nil {
		return err
	}

	working, err := current.clone()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &fileTx{state: working, workflows: fp.workflowRepo}

	err = fn(ctx, tx)
	if err != nil {
		return err
	}

	err = fp.writeLocked(working)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	fp.snapshot = working

	return nil
}

// read runs fn with the committed snapshot under a shared lock.
func (fp *Persistence) read(fn func(s *snapshot) error) error {
	fp.mu.RLock()
	if fp.snapshot != nil {
		defer fp.mu.RUnlock()

		return fn(fp.snapshot)
	}
	fp.mu.RUnlock()

	fp.mu.Lock()
	defer fp.mu.Unlock()

	current, err := fp.loadLocked()
	if err != nil {
		return err
	}

	return fn(current)
}

func (fp *Persistence) loadLocked() (*snapshot, error) {
	if fp.snapshot != nil {
		return fp.snapshot, nil
	}

	body, err := os.ReadFile(filepath.Join(fp.root, snapshotFile))
	if err != nil {
		if os.IsNotExist(err) {
			fp.snapshot = newSnapshot()

			return fp.snapshot, nil
		}

		return nil, fmt.Errorf("failed to read approval snapshot: %w", err)
	}

	loaded := newSnapshot()

	err = json.Unmarshal(body, loaded)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal approval snapshot: %w", err)
	}

	fp.snapshot = loaded

	return loaded, nil
}

func (fp *Persistence) writeLocked(s *snapshot) error {
	err := os.MkdirAll(fp.root, 0750)
	if err != nil {
		return fmt.Errorf("failed to create root directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal approval snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(fp.root, snapshotFile+".*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	return os.Rename(tmp.Name(), filepath.Join(fp.root, snapshotFile))
}
