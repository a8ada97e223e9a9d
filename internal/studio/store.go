package studio

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgresql"
	ProviderMySQL    = "mysql"
)

// NormalizeProvider maps provider aliases onto the supported names.
func NormalizeProvider(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "postgres", "postgresql", "pg":
		return ProviderPostgres
	case "mysql", "mariadb":
		return ProviderMySQL
	case "", "sqlite", "sqlite3":
		return ProviderSQLite
	}
	return strings.ToLower(p)
}

// Store is the SQL database behind the studio.
type Store struct {
	db       *sql.DB
	qb       squirrel.StatementBuilderType
	provider string
}

func OpenStore(ctx context.Context, provider, dbURL string) (*Store, error) {
	s := &Store{provider: NormalizeProvider(provider)}

	switch s.provider {
	case ProviderPostgres:
		config, err := pgx.ParseConfig(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse connection URL: %w", err)
		}
		config.DefaultQueryExecMode = pgx.QueryExecModeExec
		s.db = stdlib.OpenDB(*config)
		s.qb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
		s.db.SetMaxOpenConns(4)
		s.db.SetConnMaxLifetime(15 * time.Minute)
		s.db.SetConnMaxIdleTime(3 * time.Minute)

	case ProviderMySQL:
		dsn, err := mysqlDSN(dbURL)
		if err != nil {
			return nil, err
		}
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
		}
		s.db = db
		s.qb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
		s.db.SetMaxOpenConns(10)
		s.db.SetConnMaxLifetime(5 * time.Minute)

	case ProviderSQLite:
		path := strings.TrimPrefix(dbURL, "sqlite://")
		if !strings.Contains(path, "?") {
			path += "?cache=shared&_journal_mode=WAL"
		}
		db, err := sql.Open("sqlite3", path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
		}
		s.db = db
		s.qb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
		s.db.SetMaxOpenConns(1)

	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}

	if err := s.db.PingContext(ctx); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", s.provider, err)
	}
	return s, nil
}

// mysqlDSN turns a mysql:// URL into a driver DSN. Plain DSNs are passed through the
// driver's own parser.
func mysqlDSN(raw string) (string, error) {
	var cfg *mysql.Config
	if strings.HasPrefix(raw, "mysql://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("failed to parse MySQL URL: %w", err)
		}
		cfg = mysql.NewConfig()
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		for key, values := range u.Query() {
			if len(values) == 0 {
				continue
			}
			switch strings.ToLower(key) {
			case "ssl-mode", "sslmode":
				cfg.TLSConfig = tlsMode(values[0])
			default:
				if cfg.Params == nil {
					cfg.Params = map[string]string{}
				}
				cfg.Params[key] = values[0]
			}
		}
	} else {
		parsed, err := mysql.ParseDSN(raw)
		if err != nil {
			return "", fmt.Errorf("failed to parse MySQL DSN: %w", err)
		}
		cfg = parsed
	}
	// Updates report matched rows, not changed rows.
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

func tlsMode(mode string) string {
	switch strings.ToLower(mode) {
	case "required", "require":
		return "skip-verify"
	case "disabled", "disable":
		return "false"
	default:
		return "true"
	}
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Provider() string { return s.provider }

func (s *Store) quote(name string) string {
	if s.provider == ProviderMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// textEq compares an expression with a string value after casting it to text, so
// filter values arrive in one shape for every column type.
func (s *Store) textEq(expr string, value any) squirrel.Sqlizer {
	var cast string
	switch s.provider {
	case ProviderPostgres:
		cast = expr + "::text"
	case ProviderMySQL:
		cast = "CAST(" + expr + " AS CHAR)"
	default:
		cast = "CAST(" + expr + " AS TEXT)"
	}
	return squirrel.Expr(cast+" = ?", fmt.Sprint(value))
}

func (s *Store) query(ctx context.Context, b squirrel.Sqlizer) ([][]any, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			values[i] = scalar(v)
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

func (s *Store) count(ctx context.Context, b squirrel.SelectBuilder) (int, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

func (s *Store) exec(ctx context.Context, b squirrel.Sqlizer) (int64, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build statement: %w", err)
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scalar(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return t
	}
}

var ddlTypes = map[string]map[string]string{
	ProviderSQLite: {
		"text": "TEXT", "varchar": "TEXT", "uuid": "TEXT", "json": "TEXT",
		"integer": "INTEGER", "int": "INTEGER", "bigint": "INTEGER",
		"real": "REAL", "float": "REAL", "double": "REAL", "numeric": "NUMERIC",
		"boolean": "BOOLEAN", "bool": "BOOLEAN",
		"date": "TEXT", "timestamp": "TEXT",
	},
	ProviderPostgres: {
		"text": "TEXT", "varchar": "VARCHAR(255)", "uuid": "UUID", "json": "JSONB",
		"integer": "INTEGER", "int": "INTEGER", "bigint": "BIGINT",
		"real": "REAL", "float": "DOUBLE PRECISION", "double": "DOUBLE PRECISION", "numeric": "NUMERIC",
		"boolean": "BOOLEAN", "bool": "BOOLEAN",
		"date": "DATE", "timestamp": "TIMESTAMP",
	},
	ProviderMySQL: {
		"text": "TEXT", "varchar": "VARCHAR(255)", "uuid": "CHAR(36)", "json": "JSON",
		"integer": "INT", "int": "INT", "bigint": "BIGINT",
		"real": "DOUBLE", "float": "DOUBLE", "double": "DOUBLE", "numeric": "DECIMAL(18,6)",
		"boolean": "BOOLEAN", "bool": "BOOLEAN",
		"date": "DATE", "timestamp": "DATETIME",
	},
}

func (s *Store) ddlType(datatype string) string {
	if t, ok := ddlTypes[s.provider][strings.ToLower(datatype)]; ok {
		return t
	}
	return ddlTypes[s.provider]["text"]
}

func isIntegerType(datatype string) bool {
	switch strings.ToLower(datatype) {
	case "integer", "int", "bigint":
		return true
	}
	return false
}

// createTableSQL renders the DDL for a table. A single integer primary key is
// generated by the database.
func (s *Store) createTableSQL(t *TableDef) string {
	autoPK := ""
	if len(t.PrimaryKey) == 1 {
		if col, ok := t.columnByName(t.PrimaryKey[0]); ok && isIntegerType(col.Datatype) {
			autoPK = col.Name
		}
	}

	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		if c.Name == autoPK {
			switch s.provider {
			case ProviderPostgres:
				defs = append(defs, s.quote(c.Name)+" SERIAL PRIMARY KEY")
			case ProviderMySQL:
				defs = append(defs, s.quote(c.Name)+" INT AUTO_INCREMENT PRIMARY KEY")
			default:
				defs = append(defs, s.quote(c.Name)+" INTEGER PRIMARY KEY")
			}
			continue
		}
		def := s.quote(c.Name) + " " + s.ddlType(c.Datatype)
		if c.Required {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if autoPK == "" {
		quoted := make([]string, len(t.PrimaryKey))
		for i, pk := range t.PrimaryKey {
			quoted[i] = s.quote(pk)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", s.quote(t.Name), strings.Join(defs, ",\n  "))
}

// Migrate creates missing tables and seeds empty ones with their definition rows.
func (s *Store) Migrate(ctx context.Context, cat *Catalog) error {
	for i := range cat.defs.Tables {
		t := &cat.defs.Tables[i]
		if _, err := s.db.ExecContext(ctx, s.createTableSQL(t)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
		if len(t.Rows) == 0 {
			continue
		}
		n, err := s.count(ctx, s.qb.Select("COUNT(*)").From(s.quote(t.Name)))
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		for _, row := range t.Rows {
			values := make(map[string]any, len(row))
			for k, v := range row {
				values[s.quote(k)] = v
			}
			if _, err := s.exec(ctx, s.qb.Insert(s.quote(t.Name)).SetMap(values)); err != nil {
				return fmt.Errorf("failed to seed %s: %w", t.Name, err)
			}
		}
	}
	return nil
}
