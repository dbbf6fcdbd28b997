package docstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/adhyaay-karnwal/athas/hardware"
)

// SQLiteSnapshot persists projects and their documents so a restarted host
// keeps earlier uploads. Metadata and extracted data are stored as JSON.
type SQLiteSnapshot struct {
	db *sql.DB
}

// NewSQLiteSnapshot opens/creates the database at dbPath.
func NewSQLiteSnapshot(dbPath string) (*SQLiteSnapshot, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	// Set in the DSN so every pooled connection enforces the cascade.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	snap := &SQLiteSnapshot{db: db}
	if err := snap.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return snap, nil
}

func (s *SQLiteSnapshot) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT,
		root_folder_path TEXT,
		created_at TIMESTAMP,
		last_modified TIMESTAMP,
		position INTEGER
	);
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT,
		type TEXT,
		file_path TEXT,
		file_size INTEGER,
		uploaded_at TIMESTAMP,
		last_accessed TIMESTAMP,
		metadata TEXT,
		extracted_data TEXT,
		FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id, position);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteSnapshot) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveProject upserts the project and replaces its document rows.
func (s *SQLiteSnapshot) SaveProject(project hardware.Project, position int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := saveProject(tx, project, position); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Save writes every project, dropping rows for projects no longer present.
func (s *SQLiteSnapshot) Save(projects []hardware.Project) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM projects`); err != nil {
		tx.Rollback()
		return err
	}
	for i, project := range projects {
		if err := saveProject(tx, project, i); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func saveProject(tx *sql.Tx, project hardware.Project, position int) error {
	_, err := tx.Exec(`INSERT INTO projects (id, name, root_folder_path, created_at, last_modified, position)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name=excluded.name,
		root_folder_path=excluded.root_folder_path,
		created_at=excluded.created_at,
		last_modified=excluded.last_modified,
		position=excluded.position`,
		project.ID, project.Name, project.RootFolderPath,
		project.CreatedAt.UTC(), project.LastModified.UTC(), position)
	if err != nil {
		return fmt.Errorf("save project %s: %w", project.ID, err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE project_id = ?`, project.ID); err != nil {
		return err
	}
	if len(project.Documents) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO documents (
		id, project_id, position, name, type, file_path, file_size,
		uploaded_at, last_accessed, metadata, extracted_data
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, doc := range project.Documents {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return err
		}
		var extracted sql.NullString
		if doc.ExtractedData != nil {
			raw, err := json.Marshal(doc.ExtractedData)
			if err != nil {
				return err
			}
			extracted = sql.NullString{String: string(raw), Valid: true}
		}
		if _, err := stmt.Exec(
			doc.ID,
			project.ID,
			i,
			doc.Name,
			string(doc.Type),
			doc.FilePath,
			doc.FileSize,
			doc.UploadedAt.UTC(),
			doc.LastAccessed.UTC(),
			string(metadataJSON),
			extracted,
		); err != nil {
			return fmt.Errorf("save document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// DeleteProject removes the project and, by cascade, its documents.
func (s *SQLiteSnapshot) DeleteProject(projectID string) error {
	_, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, projectID)
	return err
}

// Load reads every project with its documents in saved order.
func (s *SQLiteSnapshot) Load() ([]hardware.Project, error) {
	rows, err := s.db.Query(`SELECT id, name, root_folder_path, created_at, last_modified
		FROM projects ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	var projects []hardware.Project
	for rows.Next() {
		var p hardware.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.RootFolderPath, &p.CreatedAt, &p.LastModified); err != nil {
			rows.Close()
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range projects {
		docs, err := s.loadDocuments(projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].Documents = docs
	}
	return projects, nil
}

func (s *SQLiteSnapshot) loadDocuments(projectID string) ([]hardware.HardwareDocument, error) {
	rows, err := s.db.Query(`SELECT id, name, type, file_path, file_size,
		uploaded_at, last_accessed, metadata, extracted_data
		FROM documents WHERE project_id = ? ORDER BY position`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := []hardware.HardwareDocument{}
	for rows.Next() {
		var (
			doc          hardware.HardwareDocument
			docType      string
			metadataJSON string
			extracted    sql.NullString
			uploadedAt   time.Time
			lastAccessed time.Time
		)
		if err := rows.Scan(&doc.ID, &doc.Name, &docType, &doc.FilePath, &doc.FileSize,
			&uploadedAt, &lastAccessed, &metadataJSON, &extracted); err != nil {
			return nil, err
		}
		doc.ProjectID = projectID
		doc.Type = hardware.DocumentType(docType)
		doc.UploadedAt = uploadedAt
		doc.LastAccessed = lastAccessed
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", doc.ID, err)
			}
		}
		if doc.Metadata.Tags == nil {
			doc.Metadata.Tags = []string{}
		}
		if extracted.Valid {
			var data hardware.ExtractedData
			if err := json.Unmarshal([]byte(extracted.String), &data); err != nil {
				return nil, fmt.Errorf("decode extracted data of %s: %w", doc.ID, err)
			}
			doc.ExtractedData = &data
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Restore loads the snapshot into store.
func (s *SQLiteSnapshot) Restore(store *Store) (int, error) {
	projects, err := s.Load()
	if err != nil {
		return 0, err
	}
	for _, p := range projects {
		store.AddProject(p)
	}
	return len(projects), nil
}
