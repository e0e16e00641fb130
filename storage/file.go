package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

// document is the on-disk layout of a FileStore.
type document struct {
	Tasks []domain.Task `json:"tasks"`
}

// FileStore keeps the whole board in a single JSON document. Every
// mutation is a read-modify-write under one mutex, and the document is
// replaced atomically through a temp file and rename.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. A missing file is treated as
// an empty board and is created on the first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) List(ctx context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, &domain.StoreError{Op: "read tasks", Err: err}
	}
	return doc.Tasks, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return domain.Task{}, &domain.StoreError{Op: "read tasks", Err: err}
	}
	i := indexOf(doc.Tasks, id)
	if i == -1 {
		return domain.Task{}, &domain.NotFoundError{ID: id}
	}
	return doc.Tasks[i], nil
}

func (s *FileStore) Create(ctx context.Context, d domain.Draft) (domain.Task, error) {
	task, err := domain.NewTask(d, domain.Now())
	if err != nil {
		return domain.Task{}, err
	}
	err = s.mutate(func(doc *document) error {
		doc.Tasks = append(doc.Tasks, task)
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (s *FileStore) Update(ctx context.Context, id string, p domain.Patch) (domain.Task, error) {
	if err := p.Validate(); err != nil {
		return domain.Task{}, err
	}
	var updated domain.Task
	err := s.mutate(func(doc *document) error {
		i := indexOf(doc.Tasks, id)
		if i == -1 {
			return &domain.NotFoundError{ID: id}
		}
		updated = p.Apply(doc.Tasks[i], domain.Now())
		doc.Tasks[i] = updated
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return updated, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	return s.mutate(func(doc *document) error {
		i := indexOf(doc.Tasks, id)
		if i == -1 {
			return &domain.NotFoundError{ID: id}
		}
		doc.Tasks = slices.Delete(doc.Tasks, i, i+1)
		return nil
	})
}

func (s *FileStore) Reorder(ctx context.Context, status domain.Status, ids []string) ([]domain.Task, error) {
	if err := domain.ValidateReorder(status, ids); err != nil {
		return nil, err
	}
	var updated []domain.Task
	err := s.mutate(func(doc *document) error {
		doc.Tasks, updated = domain.ApplyReorder(doc.Tasks, status, ids, domain.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReplaceAll overwrites the document with tasks.
func (s *FileStore) ReplaceAll(ctx context.Context, tasks []domain.Task) error {
	return s.mutate(func(doc *document) error {
		doc.Tasks = slices.Clone(tasks)
		return nil
	})
}

// mutate runs fn against the current document and persists the result. A
// domain error returned by fn aborts the write.
func (s *FileStore) mutate(fn func(doc *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return &domain.StoreError{Op: "read tasks", Err: err}
	}
	if err := fn(&doc); err != nil {
		return err
	}
	if err := s.write(doc); err != nil {
		return &domain.StoreError{Op: "write tasks", Err: err}
	}
	return nil
}

func (s *FileStore) read() (document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{Tasks: []domain.Task{}}, nil
	}
	if err != nil {
		return document{}, err
	}
	var doc document
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if doc.Tasks == nil {
		doc.Tasks = []domain.Task{}
	}
	return doc, nil
}

func (s *FileStore) write(doc document) error {
	data, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return err
	}
	log.WithFields(log.Fields{"path": s.path, "tasks": len(doc.Tasks)}).Debug("task document written")
	return nil
}

func indexOf(tasks []domain.Task, id string) int {
	return slices.IndexFunc(tasks, func(t domain.Task) bool { return t.ID == id })
}
