package databrowser

// UpsertDatabaseRequest represents a request to register or update a
// managed database
type UpsertDatabaseRequest struct {
	AgentID  string `json:"agent_id"`
	Name     string `json:"name"`
	Engine   string `json:"engine"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"` // Plain text, will be encrypted
	DBName   string `json:"db_name"`
}

// TableInfo summarizes one table in a managed database
type TableInfo struct {
	Name   string `json:"name"`
	Rows   int64  `json:"rows"`
	SizeMB int64  `json:"size_mb"`
}

// RowPage is one page of rows from a table. Values are rendered as
// strings; SQL NULL becomes the literal "NULL".
type RowPage struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
}

// ExecResult reports the effect of a write statement
type ExecResult struct {
	RowsAffected int64 `json:"rows_affected"`
}
