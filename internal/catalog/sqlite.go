package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/flowc/pkg/wf"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed Catalog.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) a SQLite database at dbPath. Use
// ":memory:" for an in-memory database (useful in tests).
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With("component", "catalog-store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// portRecord is the stored form of a port. The type is kept in the
// manifest spelling; named file types carry their secondaries so the
// type can be rebuilt without a manifest.
type portRecord struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Doc         string   `json:"doc,omitempty"`
	Required    bool     `json:"required"`
	Secondaries []string `json:"secondaries,omitempty"`
}

// PutTool inserts a tool. Inserting an existing name and version pair
// is an error.
func (s *Store) PutTool(ctx context.Context, t *wf.Tool) error {
	s.logger.Debug("sql", "op", "insert", "table", "tools", "name", t.Name, "version", t.Ver)

	cmdJSON, err := json.Marshal(t.BaseCommand)
	if err != nil {
		return fmt.Errorf("marshal base command: %w", err)
	}
	inJSON, err := json.Marshal(portRecords(t.In))
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}
	outJSON, err := json.Marshal(portRecords(t.Out))
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tools (name, version, doc, container, base_command, inputs, outputs, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Ver, t.Doc, t.Container,
		string(cmdJSON), string(inJSON), string(outJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Lookup implements Catalog. An empty version matches the sole stored
// version of the tool.
func (s *Store) Lookup(ctx context.Context, name, version string) (*wf.Tool, error) {
	s.logger.Debug("sql", "op", "select", "table", "tools", "name", name, "version", version)

	query := `SELECT name, version, doc, container, base_command, inputs, outputs
	          FROM tools WHERE name = ?`
	args := []any{name}
	if version != "" {
		query += ` AND version = ?`
		args = append(args, version)
	}

	rows, err := s.db.QueryContext(ctx, query+` ORDER BY version`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tools []*wf.Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(tools) == 0:
		return nil, &NotFoundError{Name: name, Version: version}
	case len(tools) > 1:
		vs := make([]string, len(tools))
		for i, t := range tools {
			vs[i] = t.Ver
		}
		return nil, &AmbiguousError{Name: name, Versions: vs}
	}
	return tools[0], nil
}

// ListTools returns every stored tool, sorted by name then version.
func (s *Store) ListTools(ctx context.Context) ([]*wf.Tool, error) {
	s.logger.Debug("sql", "op", "select_all", "table", "tools")

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, version, doc, container, base_command, inputs, outputs
		 FROM tools ORDER BY name, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tools []*wf.Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, rows.Err()
}

// Import copies every tool of a registry into the store.
func (s *Store) Import(ctx context.Context, reg *Registry) (int, error) {
	tools := reg.List()
	for _, t := range tools {
		if err := s.PutTool(ctx, t); err != nil {
			return 0, fmt.Errorf("import tool %q: %w", t.Name, err)
		}
	}
	return len(tools), nil
}

func scanTool(rows *sql.Rows) (*wf.Tool, error) {
	var t wf.Tool
	var cmdJSON, inJSON, outJSON string
	if err := rows.Scan(&t.Name, &t.Ver, &t.Doc, &t.Container,
		&cmdJSON, &inJSON, &outJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cmdJSON), &t.BaseCommand); err != nil {
		return nil, fmt.Errorf("unmarshal base command: %w", err)
	}

	var in, out []portRecord
	if err := json.Unmarshal([]byte(inJSON), &in); err != nil {
		return nil, fmt.Errorf("unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal([]byte(outJSON), &out); err != nil {
		return nil, fmt.Errorf("unmarshal outputs: %w", err)
	}

	var err error
	if t.In, err = recordPorts(in); err != nil {
		return nil, fmt.Errorf("tool %q inputs: %w", t.Name, err)
	}
	if t.Out, err = recordPorts(out); err != nil {
		return nil, fmt.Errorf("tool %q outputs: %w", t.Name, err)
	}
	return &t, nil
}

func portRecords(ports []wf.Port) []portRecord {
	recs := make([]portRecord, len(ports))
	for i, p := range ports {
		rec := portRecord{
			Name:     p.Name,
			Type:     p.Type.String(),
			Doc:      p.Doc,
			Required: p.Required,
		}
		if base, ok := wf.BaseFile(p.Type); ok {
			rec.Secondaries = base.Secondaries()
		}
		recs[i] = rec
	}
	return recs
}

func recordPorts(recs []portRecord) ([]wf.Port, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	ports := make([]wf.Port, len(recs))
	for i, rec := range recs {
		// Any non-builtin base name is a named file type rebuilt from
		// the stored secondaries.
		resolve := func(name string) (wf.Type, bool) {
			return wf.NamedFile(name, rec.Secondaries...), true
		}
		t, err := ParseType(rec.Type, resolve)
		if err != nil {
			return nil, fmt.Errorf("port %q: %w", rec.Name, err)
		}
		ports[i] = wf.Port{
			Name:     rec.Name,
			Type:     t,
			Doc:      rec.Doc,
			Required: rec.Required,
		}
	}
	return ports, nil
}
