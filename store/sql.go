package store

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/net/context"
)

// DBConfig describes a MySQL trending database.
type DBConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Addr     string `yaml:"addr"` // host:port
	Name     string `yaml:"name"` // database name
	Table    string `yaml:"table"`
}

// DSN returns the data source name for the mysql driver.
func (c DBConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.Addr
	cfg.DBName = c.Name
	return cfg.FormatDSN()
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidTable reports whether name can be used as a table name.
func ValidTable(name string) bool {
	return identRe.MatchString(name)
}

func (c DBConfig) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("store: missing database address")
	}
	if c.Name == "" {
		return fmt.Errorf("store: missing database name")
	}
	if !ValidTable(c.Table) {
		return fmt.Errorf("store: invalid table name %q", c.Table)
	}
	return nil
}

// Timestamp represents a millisecond time stamp that may be null.
// Timestamp implements the sql.Scanner interface so it can be used as a Scan
// destination.
type Timestamp struct {
	Valid bool
	Time  time.Time
}

func (ts *Timestamp) Scan(value interface{}) error {
	if value == nil {
		ts.Time, ts.Valid = time.Time{}, false
		return nil
	}
	rv := reflect.ValueOf(value)
	if !rv.Type().ConvertibleTo(reflect.TypeOf(int64(0))) {
		return fmt.Errorf("%T is not convertible to int64", value)
	}
	ts.Valid = true
	ts.Time = time.UnixMilli(rv.Convert(reflect.TypeOf(int64(0))).Int())
	return nil
}

func (ts Timestamp) Value() (driver.Value, error) {
	if !ts.Valid {
		return nil, nil
	}
	return ts.Time.UnixMilli(), nil
}

// Row is a sample read back from the database.
//
// +--------------+--------------+------+-----+---------+----------------+
// | Field        | Type         | Null | Key | Default | Extra          |
// +--------------+--------------+------+-----+---------+----------------+
// | id           | bigint(20)   | NO   | PRI | NULL    | auto_increment |
// | name         | varchar(255) | YES  | MUL | NULL    |                |
// | tstampmillis | bigint(20)   | YES  |     | NULL    |                |
// | x            | double       | NO   |     | NULL    |                |
// | y            | double       | NO   |     | NULL    |                |
// +--------------+--------------+------+-----+---------+----------------+
type Row struct {
	ID     int64
	Name   sql.NullString
	TStamp Timestamp
	X      float64
	Y      float64
}

const createTable = `CREATE TABLE IF NOT EXISTS %s (
	id           BIGINT NOT NULL AUTO_INCREMENT,
	name         VARCHAR(255),
	tstampmillis BIGINT,
	x            DOUBLE NOT NULL,
	y            DOUBLE NOT NULL,
	PRIMARY KEY (id),
	INDEX (name)
)`

// SQL stores records in a MySQL table.
type SQL struct {
	db    *sql.DB
	owned bool
	table string
	ins   *sql.Stmt
}

// OpenSQL connects to the database described by cfg and creates the
// samples table if needed.
func OpenSQL(ctx context.Context, cfg DBConfig) (*SQL, error) {
	err := cfg.validate()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("store: error opening db connection: %w", err)
	}

	// Open doesn't open a connection. Validate DSN data:
	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: error pinging db: %w", err)
	}

	o, err := NewSQL(ctx, db, cfg.Table)
	if err != nil {
		db.Close()
		return nil, err
	}
	o.owned = true
	return o, nil
}

// NewSQL uses an already opened database. The database is not closed by
// Close.
func NewSQL(ctx context.Context, db *sql.DB, table string) (*SQL, error) {
	if !ValidTable(table) {
		return nil, fmt.Errorf("store: invalid table name %q", table)
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf(createTable, table))
	if err != nil {
		return nil, fmt.Errorf("store: error creating table %q: %w", table, err)
	}
	ins, err := db.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (name, tstampmillis, x, y) VALUES (?, ?, ?, ?)", table,
	))
	if err != nil {
		return nil, fmt.Errorf("store: error preparing stmt: %w", err)
	}
	return &SQL{db: db, table: table, ins: ins}, nil
}

func (o *SQL) Write(rec Record) error {
	_, err := o.ins.Exec(
		sql.NullString{String: rec.Name, Valid: rec.Name != ""},
		Timestamp{Time: rec.Stamp, Valid: !rec.Stamp.IsZero()},
		rec.X, rec.Y,
	)
	if err != nil {
		return fmt.Errorf("store: error inserting sample: %w", err)
	}
	return nil
}

// Samples returns the rows stored after the row afterID, in insertion order.
func (o *SQL) Samples(ctx context.Context, afterID int64) ([]Row, error) {
	rows, err := o.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, name, tstampmillis, x, y FROM %s WHERE id > ? ORDER BY id", o.table,
	), afterID)
	if err != nil {
		return nil, fmt.Errorf("store: error in query: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		err = rows.Scan(&row.ID, &row.Name, &row.TStamp, &row.X, &row.Y)
		if err != nil {
			return nil, fmt.Errorf("store: error scanning: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (o *SQL) Close() error {
	if o.ins == nil {
		return nil
	}
	err := o.ins.Close()
	o.ins = nil
	if o.owned {
		if e := o.db.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
