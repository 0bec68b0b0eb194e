package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/funnyzak/reqkit/internal/config"
	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/pkg/request"

	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName = "sqlite"

	stateActiveRequest     = "active_request_id"
	stateActiveEnvironment = "active_environment_id"
	stateWorkspaceSaved    = "workspace_saved"
	stateEnvironmentsSaved = "environments_saved"

	globalScope = ""
)

type sqliteStore struct {
	db  *sql.DB
	cfg *config.StorageConfig
	log logger.Logger
}

func newSQLiteStore(cfg *config.StorageConfig, log logger.Logger) (Store, error) {
	path := cfg.Path
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("prepare sqlite directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", filepath.ToSlash(absPath))
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, err
	}
	// Saves replace whole tables; one connection serializes them.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %s: %w", stmt, err)
		}
	}

	store := &sqliteStore{db: db, cfg: cfg, log: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("SQLite storage opened", "path", absPath)
	return store, nil
}

func (s *sqliteStore) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS requests (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    method TEXT NOT NULL,
    url TEXT NOT NULL,
    definition_json TEXT NOT NULL,
    selected_response_id TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS responses (
    request_id TEXT NOT NULL,
    id TEXT NOT NULL,
    position INTEGER NOT NULL,
    timestamp_ms INTEGER NOT NULL,
    status INTEGER NOT NULL,
    response_json TEXT,
    error_json TEXT,
    PRIMARY KEY (request_id, id),
    FOREIGN KEY (request_id) REFERENCES requests(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_responses_request ON responses(request_id, position);

CREATE TABLE IF NOT EXISTS folders (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    expanded INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS folder_requests (
    folder_id TEXT NOT NULL,
    request_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (folder_id, request_id),
    FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS environments (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS variables (
    scope TEXT NOT NULL,
    id TEXT NOT NULL,
    position INTEGER NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    enabled INTEGER NOT NULL,
    PRIMARY KEY (scope, id)
);

CREATE TABLE IF NOT EXISTS app_state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
	_, err := s.db.Exec(schema)
	return err
}

// withTx runs fn in a transaction, rolling back when it fails.
func (s *sqliteStore) withTx(fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) SaveWorkspace(snap request.WorkspaceSnapshot) error {
	return s.withTx(func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM folder_requests",
			"DELETE FROM folders",
			"DELETE FROM responses",
			"DELETE FROM requests",
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clear workspace: %w", err)
			}
		}

		for i, it := range snap.Requests {
			def, err := json.Marshal(it.Request)
			if err != nil {
				return fmt.Errorf("marshal request %s: %w", it.ID, err)
			}
			_, err = tx.ExecContext(ctx, `INSERT INTO requests (
                id, position, name, method, url, definition_json, selected_response_id, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				it.ID, i, it.Name, it.Request.Method, it.Request.URL, string(def),
				nullString(it.SelectedResponseID), it.CreatedAt, it.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("insert request: %w", err)
			}
			if err := insertResponses(ctx, tx, it); err != nil {
				return err
			}
		}

		for i, f := range snap.Folders {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO folders (id, position, name, expanded) VALUES (?, ?, ?, ?)",
				f.ID, i, f.Name, boolToInt(f.Expanded),
			); err != nil {
				return fmt.Errorf("insert folder: %w", err)
			}
			for j, reqID := range f.Requests {
				if _, err := tx.ExecContext(ctx,
					"INSERT OR IGNORE INTO folder_requests (folder_id, request_id, position) VALUES (?, ?, ?)",
					f.ID, reqID, j,
				); err != nil {
					return fmt.Errorf("insert folder membership: %w", err)
				}
			}
		}

		if err := setState(ctx, tx, stateActiveRequest, snap.ActiveRequestID); err != nil {
			return err
		}
		return setState(ctx, tx, stateWorkspaceSaved, "1")
	})
}

func insertResponses(ctx context.Context, tx *sql.Tx, it request.RequestItem) error {
	for i, r := range it.Responses {
		var respJSON, errJSON sql.NullString
		if r.Response != nil {
			data, err := json.Marshal(r.Response)
			if err != nil {
				return fmt.Errorf("marshal response: %w", err)
			}
			respJSON = sql.NullString{String: string(data), Valid: true}
		}
		if r.Error != nil {
			data, err := json.Marshal(r.Error)
			if err != nil {
				return fmt.Errorf("marshal error: %w", err)
			}
			errJSON = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO responses (
            request_id, id, position, timestamp_ms, status, response_json, error_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.ID, r.ID, i, r.Timestamp, r.Status(), respJSON, errJSON,
		); err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
	}
	return nil
}

func (s *sqliteStore) LoadWorkspace() (*request.WorkspaceSnapshot, error) {
	ctx := context.Background()
	saved, err := getState(ctx, s.db, stateWorkspaceSaved)
	if err != nil || saved == "" {
		return nil, err
	}

	snap := request.NewWorkspaceSnapshot()
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, definition_json, selected_response_id, created_at, updated_at FROM requests ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	for rows.Next() {
		var (
			it       request.RequestItem
			def      string
			selected sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.Name, &def, &selected, &it.CreatedAt, &it.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if err := json.Unmarshal([]byte(def), &it.Request); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode request %s: %w", it.ID, err)
		}
		it.SelectedResponseID = selected.String
		it.Responses = []request.ResponseHistoryItem{}
		index[it.ID] = len(snap.Requests)
		snap.Requests = append(snap.Requests, it)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT request_id, id, timestamp_ms, response_json, error_json FROM responses ORDER BY request_id, position ASC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			reqID             string
			entry             request.ResponseHistoryItem
			respJSON, errJSON sql.NullString
		)
		if err := rows.Scan(&reqID, &entry.ID, &entry.Timestamp, &respJSON, &errJSON); err != nil {
			rows.Close()
			return nil, err
		}
		if respJSON.Valid {
			entry.Response = &request.HTTPResponse{}
			if err := json.Unmarshal([]byte(respJSON.String), entry.Response); err != nil {
				rows.Close()
				return nil, fmt.Errorf("decode response %s: %w", entry.ID, err)
			}
		}
		if errJSON.Valid {
			entry.Error = &request.HTTPError{}
			if err := json.Unmarshal([]byte(errJSON.String), entry.Error); err != nil {
				rows.Close()
				return nil, fmt.Errorf("decode error %s: %w", entry.ID, err)
			}
		}
		if idx, ok := index[reqID]; ok && entry.Valid() {
			snap.Requests[idx].Responses = append(snap.Requests[idx].Responses, entry)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT id, name, expanded FROM folders ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	folderIndex := make(map[string]int)
	for rows.Next() {
		var (
			f        request.Folder
			expanded int
		)
		if err := rows.Scan(&f.ID, &f.Name, &expanded); err != nil {
			rows.Close()
			return nil, err
		}
		f.Expanded = expanded != 0
		f.Requests = []string{}
		folderIndex[f.ID] = len(snap.Folders)
		snap.Folders = append(snap.Folders, f)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT folder_id, request_id FROM folder_requests ORDER BY folder_id, position ASC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var folderID, reqID string
		if err := rows.Scan(&folderID, &reqID); err != nil {
			rows.Close()
			return nil, err
		}
		if idx, ok := folderIndex[folderID]; ok {
			snap.Folders[idx].Requests = append(snap.Folders[idx].Requests, reqID)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	snap.ActiveRequestID, err = getState(ctx, s.db, stateActiveRequest)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *sqliteStore) SaveEnvironments(snap request.EnvironmentSnapshot) error {
	return s.withTx(func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range []string{"DELETE FROM variables", "DELETE FROM environments"} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clear environments: %w", err)
			}
		}
		if err := insertVariables(ctx, tx, globalScope, snap.Globals); err != nil {
			return err
		}
		for i, env := range snap.Environments {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO environments (id, position, name) VALUES (?, ?, ?)",
				env.ID, i, env.Name,
			); err != nil {
				return fmt.Errorf("insert environment: %w", err)
			}
			if err := insertVariables(ctx, tx, env.ID, env.Variables); err != nil {
				return err
			}
		}
		if err := setState(ctx, tx, stateActiveEnvironment, snap.ActiveEnvironmentID); err != nil {
			return err
		}
		return setState(ctx, tx, stateEnvironmentsSaved, "1")
	})
}

func insertVariables(ctx context.Context, tx *sql.Tx, scope string, rows []request.KeyValue) error {
	for i, v := range rows {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO variables (scope, id, position, key, value, enabled) VALUES (?, ?, ?, ?, ?, ?)",
			scope, v.ID, i, v.Key, v.Value, boolToInt(v.Enabled),
		); err != nil {
			return fmt.Errorf("insert variable: %w", err)
		}
	}
	return nil
}

func (s *sqliteStore) LoadEnvironments() (*request.EnvironmentSnapshot, error) {
	ctx := context.Background()
	saved, err := getState(ctx, s.db, stateEnvironmentsSaved)
	if err != nil || saved == "" {
		return nil, err
	}

	snap := request.EnvironmentSnapshot{Environments: []request.Environment{}, Globals: []request.KeyValue{}}
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM environments ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	for rows.Next() {
		var env request.Environment
		if err := rows.Scan(&env.ID, &env.Name); err != nil {
			rows.Close()
			return nil, err
		}
		env.Variables = []request.KeyValue{}
		index[env.ID] = len(snap.Environments)
		snap.Environments = append(snap.Environments, env)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT scope, id, key, value, enabled FROM variables ORDER BY scope, position ASC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			scope   string
			kv      request.KeyValue
			enabled int
		)
		if err := rows.Scan(&scope, &kv.ID, &kv.Key, &kv.Value, &enabled); err != nil {
			rows.Close()
			return nil, err
		}
		kv.Enabled = enabled != 0
		if scope == globalScope {
			snap.Globals = append(snap.Globals, kv)
		} else if idx, ok := index[scope]; ok {
			snap.Environments[idx].Variables = append(snap.Environments[idx].Variables, kv)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	snap.ActiveEnvironmentID, err = getState(ctx, s.db, stateActiveEnvironment)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *sqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getState(ctx context.Context, q queryRower, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, "SELECT value FROM app_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func setState(ctx context.Context, tx *sql.Tx, key, value string) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO app_state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
