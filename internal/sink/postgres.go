package sink

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/boe-sumario-crawler/internal/gazette"
)

// DefaultTable receives rows when no table is configured.
const DefaultTable = "boe_items"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidTableName reports whether name can be used unquoted as a table.
func ValidTableName(name string) bool {
	return validTableName.MatchString(name)
}

// PostgresConfig controls the Postgres connection pool used for item rows.
type PostgresConfig struct {
	DSN             string
	Table           string
	RunID           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresSink writes one row per item, tagged with the run ID.
type PostgresSink struct {
	pool  execCloser
	table string
	runID string
}

var _ Sink = (*PostgresSink)(nil)

// NewPostgres creates a Postgres-backed sink using the provided config.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresSink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewPostgresWithPool(pool, cfg.Table, cfg.RunID)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresWithPool constructs a sink from an existing pool.
func NewPostgresWithPool(pool execCloser, table, runID string) (*PostgresSink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresSink{pool: pool, table: table, runID: runID}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresSink) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureTable creates the item table when it does not exist.
func (s *PostgresSink) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id text NOT NULL,
	identificador text NOT NULL,
	fecha date NOT NULL,
	diario_numero text NOT NULL,
	seccion_codigo text NOT NULL,
	seccion_nombre text NOT NULL,
	departamento_codigo text NOT NULL,
	departamento_nombre text NOT NULL,
	epigrafe_nombre text NOT NULL,
	titulo text NOT NULL,
	url_html text NOT NULL,
	url_xml text NOT NULL,
	url_pdf text NOT NULL,
	sz_bytes text NOT NULL,
	sz_kbytes text NOT NULL,
	pagina_inicial text NOT NULL,
	pagina_final text NOT NULL,
	tematica text NOT NULL,
	texto_limpio text NOT NULL,
	mes text NOT NULL,
	trimestre text NOT NULL,
	PRIMARY KEY (run_id, identificador, fecha)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Write inserts every item and returns the destination table.
func (s *PostgresSink) Write(ctx context.Context, items []gazette.Item) (string, error) {
	if s == nil || s.pool == nil {
		return "", fmt.Errorf("postgres sink is not configured")
	}
	for i := range items {
		if err := s.insert(ctx, items[i]); err != nil {
			return "", err
		}
	}
	return "postgres:" + s.table, nil
}

func (s *PostgresSink) insert(ctx context.Context, it gazette.Item) error {
	rec := it.Record()
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	identificador,
	fecha,
	diario_numero,
	seccion_codigo,
	seccion_nombre,
	departamento_codigo,
	departamento_nombre,
	epigrafe_nombre,
	titulo,
	url_html,
	url_xml,
	url_pdf,
	sz_bytes,
	sz_kbytes,
	pagina_inicial,
	pagina_final,
	tematica,
	texto_limpio,
	mes,
	trimestre
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21
) ON CONFLICT DO NOTHING`, s.table)

	args := []any{
		s.runID,
		rec.ID,
		it.Date,
		rec.IssueNumber,
		rec.SectionCode,
		rec.SectionName,
		rec.DeptCode,
		rec.DeptName,
		rec.EpigraphName,
		rec.Title,
		rec.HTMLURL,
		rec.XMLURL,
		rec.PDFURL,
		rec.PDFBytes,
		rec.PDFKBytes,
		rec.PageStart,
		rec.PageEnd,
		rec.Theme,
		rec.Text,
		rec.Month,
		rec.Quarter,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert item %s: %w", rec.ID, err)
	}
	return nil
}
