package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
)

// SupabaseStore implements Store against the hosted platform's PostgREST
// API. The table is owned by the platform; this client only appends rows
// and filters by owning-user id.
type SupabaseStore struct {
	baseURL    string
	apiKey     string
	table      string
	httpClient *http.Client
}

// NewSupabaseStore creates a client for the hosted project. The service
// key is required; the default table is "project_runs".
func NewSupabaseStore(projectURL, serviceKey, table string, timeout time.Duration) (*SupabaseStore, error) {
	if projectURL == "" {
		return nil, fmt.Errorf("supabase project URL is required")
	}
	if serviceKey == "" {
		return nil, fmt.Errorf("supabase service key is required")
	}
	if table == "" {
		table = "project_runs"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SupabaseStore{
		baseURL:    strings.TrimSuffix(projectURL, "/"),
		apiKey:     serviceKey,
		table:      table,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type supabaseRow struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Description string          `json:"description"`
	Results     json.RawMessage `json:"results"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SaveRun appends a row to the hosted table.
func (s *SupabaseStore) SaveRun(ctx context.Context, run *domain.PersistedRun) error {
	results, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	body, err := json.Marshal(supabaseRow{
		ID:          run.ID,
		UserID:      run.UserID,
		Description: run.Description,
		Results:     results,
		CreatedAt:   createdAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tableURL(nil), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("supabase insert failed [%d]: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// LatestRun returns the user's most recent row.
func (s *SupabaseStore) LatestRun(ctx context.Context, userID string) (*domain.PersistedRun, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	return s.queryLatest(ctx, q)
}

// LatestRunByDescription filters additionally by description.
func (s *SupabaseStore) LatestRunByDescription(ctx context.Context, userID, description string) (*domain.PersistedRun, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("description", "eq."+description)
	return s.queryLatest(ctx, q)
}

// Close is a no-op; the HTTP client holds no resources to release.
func (s *SupabaseStore) Close() error {
	return nil
}

func (s *SupabaseStore) queryLatest(ctx context.Context, q url.Values) (*domain.PersistedRun, error) {
	q.Set("order", "created_at.desc")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tableURL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("supabase query failed [%d]: %s", resp.StatusCode, string(respBody))
	}

	var rows []supabaseRow
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}

	row := rows[0]
	run := &domain.PersistedRun{
		ID:          row.ID,
		UserID:      row.UserID,
		Description: row.Description,
		CreatedAt:   row.CreatedAt,
	}
	if err := json.Unmarshal(row.Results, &run.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	return run, nil
}

func (s *SupabaseStore) tableURL(q url.Values) string {
	u := s.baseURL + "/rest/v1/" + s.table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (s *SupabaseStore) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
}
