package repository

import (
	"context"
	"fmt"
	"strings"

	"flickr-shapes/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb/encoding/wkt"
)

// PostgresDataset stores each group as a PostGIS table. The whole conversion
// runs in a single transaction that is committed on Close.
type PostgresDataset struct {
	conn   *pgx.Conn
	tx     pgx.Tx
	groups []*postgresGroup
}

type postgresGroup struct {
	name   string
	table  string
	tx     pgx.Tx
	insert string
	count  int64
}

// OpenPostgresDataset connects to dbSource and begins the conversion transaction.
func OpenPostgresDataset(ctx context.Context, dbSource string) (*PostgresDataset, error) {
	conn, err := pgx.Connect(ctx, dbSource)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("failed to connect to database: %w", err)}
	}

	d, err := NewPostgresDataset(ctx, conn)
	if err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return d, nil
}

// NewPostgresDataset begins the conversion transaction on an open connection.
// The dataset takes ownership of conn.
func NewPostgresDataset(ctx context.Context, conn *pgx.Conn) (*PostgresDataset, error) {
	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS postgis"); err != nil {
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("failed to enable postgis: %w", err)}
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	return &PostgresDataset{conn: conn, tx: tx}, nil
}

// CreateGroup creates the table for a group, replacing any table of the same
// name. The replacement only becomes visible when Close commits.
func (d *PostgresDataset) CreateGroup(ctx context.Context, name string, schema models.Schema) (Group, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &StoreError{Op: "create group", Group: name, Err: fmt.Errorf("empty table name")}
	}

	table := pgx.Identifier{name}.Sanitize()
	columns := make([]string, 0, len(schema)+2)
	names := make([]string, 0, len(schema))
	placeholders := make([]string, 0, len(schema))
	columns = append(columns, "id BIGSERIAL PRIMARY KEY")
	for i, f := range schema {
		column := pgx.Identifier{f.Name}.Sanitize()
		columns = append(columns, column+" "+sqlType(f.Type))
		names = append(names, column)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}
	columns = append(columns, fmt.Sprintf("geom GEOMETRY(POLYGON, %d)", models.SRID))

	query := fmt.Sprintf(`
	DROP TABLE IF EXISTS %s;
	CREATE TABLE %s (
		%s
	);
	CREATE INDEX %s ON %s USING GIST (geom);
	`, table, table, strings.Join(columns, ",\n\t\t"), pgx.Identifier{name + "_geom_idx"}.Sanitize(), table)

	if _, err := d.tx.Exec(ctx, query); err != nil {
		return nil, &StoreError{Op: "create group", Group: name, Err: err}
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s, geom) VALUES (%s, ST_GeomFromText($%d, %d))",
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "), len(schema)+1, models.SRID)

	g := &postgresGroup{name: name, table: table, tx: d.tx, insert: insert}
	d.groups = append(d.groups, g)
	return g, nil
}

// Close verifies every table holds the rows appended to it, then commits the
// transaction and closes the connection. A failed check rolls everything back.
func (d *PostgresDataset) Close(ctx context.Context) error {
	defer d.conn.Close(ctx)
	for _, g := range d.groups {
		if err := g.verify(ctx); err != nil {
			d.tx.Rollback(ctx)
			return &StoreError{Op: "close", Group: g.name, Err: err}
		}
	}
	if err := d.tx.Commit(ctx); err != nil {
		return &StoreError{Op: "close", Err: fmt.Errorf("failed to commit: %w", err)}
	}
	return nil
}

// Abort rolls the transaction back and closes the connection.
func (d *PostgresDataset) Abort(ctx context.Context) error {
	defer d.conn.Close(ctx)
	if err := d.tx.Rollback(ctx); err != nil {
		return &StoreError{Op: "abort", Err: fmt.Errorf("failed to roll back: %w", err)}
	}
	return nil
}

func (g *postgresGroup) Name() string {
	return g.name
}

func (g *postgresGroup) Append(ctx context.Context, feature *models.Feature) error {
	args := append(feature.Values(), wkt.MarshalString(feature.Geometry))
	if _, err := g.tx.Exec(ctx, g.insert, args...); err != nil {
		return err
	}
	g.count++
	return nil
}

func (g *postgresGroup) verify(ctx context.Context) error {
	var count int64
	if err := g.tx.QueryRow(ctx, "SELECT COUNT(*) FROM "+g.table).Scan(&count); err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	if count != g.count {
		return fmt.Errorf("record count mismatch: expected %d, got %d", g.count, count)
	}
	return nil
}

func sqlType(t models.FieldType) string {
	switch t {
	case models.FieldInteger:
		return "BIGINT"
	case models.FieldReal:
		return "DOUBLE PRECISION"
	case models.FieldDate:
		return "DATE"
	}
	return "TEXT"
}
