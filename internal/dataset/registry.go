// Package dataset stores uploaded tabular files and their metadata. The
// estimation step that consumes them lives outside this service; uploads
// are validated, summarized and referenced by id.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
)

// Registry keeps dataset files under a root directory, one CSV plus one
// metadata sidecar per dataset.
type Registry struct {
	dir string
}

// NewRegistry creates the root directory if needed.
func NewRegistry(dir string) (*Registry, error) {
	if dir == "" {
		return nil, fmt.Errorf("dataset directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dataset dir: %w", err)
	}
	return &Registry{dir: dir}, nil
}

// Save stores the uploaded CSV, sniffs its header and row count and writes
// the metadata sidecar. domainColumn, when given, must name a column.
func (r *Registry) Save(name string, src io.Reader, domainColumn string) (*domain.Dataset, error) {
	id := uuid.New().String()
	path := filepath.Join(r.dir, id+".csv")

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write dataset file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close dataset file: %w", err)
	}

	columns, rows, err := sniffCSV(path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	if domainColumn != "" && !contains(columns, domainColumn) {
		os.Remove(path)
		return nil, fmt.Errorf("domain column %q not found in dataset header", domainColumn)
	}

	ds := &domain.Dataset{
		ID:           id,
		Name:         name,
		Path:         path,
		DomainColumn: domainColumn,
		Columns:      columns,
		Rows:         rows,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.writeSidecar(ds); err != nil {
		os.Remove(path)
		return nil, err
	}
	return ds, nil
}

// Get loads a dataset's metadata by id.
func (r *Registry) Get(id string) (*domain.Dataset, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, id+".json"))
	if os.IsNotExist(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset metadata: %w", err)
	}
	var ds domain.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset metadata: %w", err)
	}
	ds.Path = filepath.Join(r.dir, ds.ID+".csv")
	return &ds, nil
}

// List returns all stored datasets, newest first.
func (r *Registry) List() ([]*domain.Dataset, error) {
	matches, err := filepath.Glob(filepath.Join(r.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	var out []*domain.Dataset
	for _, m := range matches {
		id := strings.TrimSuffix(filepath.Base(m), ".json")
		ds, err := r.Get(id)
		if err != nil {
			continue
		}
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Registry) writeSidecar(ds *domain.Dataset) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.dir, ds.ID+".json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write dataset metadata: %w", err)
	}
	return nil
}

// sniffCSV reads the header and counts data rows.
func sniffCSV(path string) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("dataset is empty")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse dataset header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := 0
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to parse dataset row %d: %w", rows+2, err)
		}
		rows++
	}
	return header, rows, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
