package databrowser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/sayanm085/shotops-dashboard/internal/crypto"
	"github.com/sayanm085/shotops-dashboard/internal/models"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500

	defaultMySQLPort = 3306
)

// tablesQuery lists tables in the connected schema with approximate row
// counts and data sizes
const tablesQuery = `SELECT t.table_name, IFNULL(t.table_rows, 0),
	ROUND(IFNULL(t.data_length, 0) / 1024 / 1024)
	FROM information_schema.tables t
	WHERE t.table_schema = DATABASE()
	ORDER BY t.table_name`

// Service manages database records and browses their contents over
// direct MySQL connections built from decrypted credentials
type Service struct {
	db    *gorm.DB
	ctx   context.Context
	mu    sync.Mutex
	conns map[string]*sql.DB // managed database ID -> connection pool
}

// NewService creates a new databrowser service
func NewService(db *gorm.DB, ctx context.Context) *Service {
	return &Service{
		db:    db,
		ctx:   ctx,
		conns: make(map[string]*sql.DB),
	}
}

// List returns managed databases, optionally filtered by agent
func (s *Service) List(agentID string) ([]models.ManagedDatabase, error) {
	query := s.db.Order("name")
	if agentID != "" {
		query = query.Where("agent_id = ?", agentID)
	}

	var dbs []models.ManagedDatabase
	if err := query.Find(&dbs).Error; err != nil {
		return nil, err
	}
	return dbs, nil
}

// Get retrieves a specific managed database by ID
func (s *Service) Get(dbID string) (*models.ManagedDatabase, error) {
	var record models.ManagedDatabase
	if err := s.db.Where("id = ?", dbID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Create registers a managed database
func (s *Service) Create(req UpsertDatabaseRequest) (*models.ManagedDatabase, error) {
	// Validate encryption is initialized
	if !crypto.IsInitialized() {
		return nil, errors.New("encryption system not initialized - cannot save databases")
	}

	if req.AgentID == "" || req.Name == "" || req.Host == "" || req.Username == "" {
		return nil, errors.New("agent, name, host, and username are required")
	}

	engine := req.Engine
	if engine == "" {
		engine = "mysql"
	}
	if engine != "mysql" {
		return nil, fmt.Errorf("unsupported engine: %s", engine)
	}

	port := req.Port
	if port == 0 {
		port = defaultMySQLPort
	}

	passwordEnc, err := crypto.EncryptPassword(req.Password)
	if err != nil {
		return nil, err
	}

	record := &models.ManagedDatabase{
		AgentID:     req.AgentID,
		Name:        req.Name,
		Engine:      engine,
		Host:        req.Host,
		Port:        port,
		Username:    req.Username,
		PasswordEnc: passwordEnc,
		DBName:      req.DBName,
		Status:      "unknown",
	}

	if err := s.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// Update updates a managed database's connection details
func (s *Service) Update(dbID string, req UpsertDatabaseRequest) (*models.ManagedDatabase, error) {
	var record models.ManagedDatabase
	if err := s.db.Where("id = ?", dbID).First(&record).Error; err != nil {
		return nil, err
	}

	if req.Name != "" {
		record.Name = req.Name
	}
	if req.Host != "" {
		record.Host = req.Host
	}
	if req.Port != 0 {
		record.Port = req.Port
	}
	if req.Username != "" {
		record.Username = req.Username
	}
	if req.DBName != "" {
		record.DBName = req.DBName
	}

	// Encrypt password if provided
	if req.Password != "" {
		passwordEnc, err := crypto.EncryptPassword(req.Password)
		if err != nil {
			return nil, err
		}
		record.PasswordEnc = passwordEnc
	}

	if err := s.db.Save(&record).Error; err != nil {
		return nil, err
	}

	// Connection details changed, drop any open pool
	s.closeConn(dbID)

	return &record, nil
}

// Delete removes a managed database record and closes its connection.
// The database server itself is not touched.
func (s *Service) Delete(dbID string) error {
	if err := s.db.Where("id = ?", dbID).Delete(&models.ManagedDatabase{}).Error; err != nil {
		return err
	}
	s.closeConn(dbID)
	return nil
}

// Ping verifies connectivity and updates the stored status
func (s *Service) Ping(dbID string) error {
	conn, err := s.connFor(dbID)
	if err != nil {
		s.markStatus(dbID, "offline")
		return err
	}

	if err := conn.Ping(); err != nil {
		s.markStatus(dbID, "offline")
		return fmt.Errorf("ping failed: %w", err)
	}

	s.markStatus(dbID, "online")
	return nil
}

// ListTables returns the tables in the managed database with approximate
// row counts and sizes
func (s *Service) ListTables(dbID string) ([]TableInfo, error) {
	conn, err := s.connFor(dbID)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(tablesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := []TableInfo{}
	for rows.Next() {
		var t TableInfo
		if err := rows.Scan(&t.Name, &t.Rows, &t.SizeMB); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// FetchRows returns one page of rows from a table
func (s *Service) FetchRows(dbID, table string, limit, offset int) (*RowPage, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	conn, err := s.connFor(dbID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM `%s` LIMIT ? OFFSET ?", table)
	rows, err := conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	page := &RowPage{Columns: cols, Rows: [][]string{}, Limit: limit, Offset: offset}
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make([]string, len(cols))
		for i, v := range vals {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		page.Rows = append(page.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return page, nil
}

// ExecStatement runs a single INSERT, UPDATE, or DELETE statement and
// reports the number of affected rows
func (s *Service) ExecStatement(dbID, stmt string) (*ExecResult, error) {
	if err := ValidateStatement(stmt); err != nil {
		return nil, err
	}

	conn, err := s.connFor(dbID)
	if err != nil {
		return nil, err
	}

	res, err := conn.Exec(stmt)
	if err != nil {
		return nil, fmt.Errorf("statement failed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return &ExecResult{RowsAffected: affected}, nil
}

// CloseAll closes every open browser connection
func (s *Service) CloseAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[string]*sql.DB)
	s.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

// connFor returns the connection pool for a managed database, opening
// one from decrypted credentials on first use
func (s *Service) connFor(dbID string) (*sql.DB, error) {
	s.mu.Lock()
	if conn, ok := s.conns[dbID]; ok {
		s.mu.Unlock()
		return conn, nil
	}
	s.mu.Unlock()

	record, err := s.Get(dbID)
	if err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}
	if record.Engine != "mysql" {
		return nil, fmt.Errorf("unsupported engine: %s", record.Engine)
	}

	password, err := crypto.DecryptPassword(record.PasswordEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt password: %w", err)
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		record.Username, password, record.Host, record.Port, record.DBName)

	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	conn.SetConnMaxLifetime(3 * time.Minute)
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)

	s.mu.Lock()
	// Another caller may have opened a pool concurrently; keep the first
	if existing, ok := s.conns[dbID]; ok {
		s.mu.Unlock()
		conn.Close()
		return existing, nil
	}
	s.conns[dbID] = conn
	s.mu.Unlock()

	return conn, nil
}

// closeConn drops and closes the pool for a managed database
func (s *Service) closeConn(dbID string) {
	s.mu.Lock()
	conn, ok := s.conns[dbID]
	if ok {
		delete(s.conns, dbID)
	}
	s.mu.Unlock()

	if ok {
		conn.Close()
	}
}

// markStatus persists a connectivity status change
func (s *Service) markStatus(dbID, status string) {
	if err := s.db.Model(&models.ManagedDatabase{}).Where("id = ?", dbID).Update("status", status).Error; err != nil {
		log.Printf("Failed to update database %s status: %v", dbID, err)
	}
}
