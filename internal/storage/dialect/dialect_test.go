package dialect

import (
	"testing"
)

func TestFromDriverName(t *testing.T) {
	tests := []struct {
		driverName string
		wantName   string
		wantDriver string
		wantErr    bool
	}{
		{"sqlite", "sqlite", "sqlite", false},
		{"sqlite3", "sqlite", "sqlite", false},
		{"postgres", "postgres", "pgx", false},
		{"pgx", "postgres", "pgx", false},
		{"mysql", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driverName, func(t *testing.T) {
			d, err := FromDriverName(tt.driverName)
			if (err != nil) != tt.wantErr {
				t.Errorf("FromDriverName() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil {
				return
			}
			if d.Name() != tt.wantName {
				t.Errorf("Name() = %v, want %v", d.Name(), tt.wantName)
			}
			if d.DriverName() != tt.wantDriver {
				t.Errorf("DriverName() = %v, want %v", d.DriverName(), tt.wantDriver)
			}
		})
	}

	if _, err := New(DialectType("oracle")); err == nil {
		t.Error("New(oracle) should fail")
	}
}

func TestPostgresDialect_Rebind(t *testing.T) {
	d := &postgresDialect{}
	tests := []struct {
		query string
		want  string
	}{
		{"SELECT data FROM studio_snapshots WHERE slot = ?", "SELECT data FROM studio_snapshots WHERE slot = $1"},
		{"INSERT INTO studio_snapshots VALUES (?, ?, ?)", "INSERT INTO studio_snapshots VALUES ($1, $2, $3)"},
		{"SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := d.Rebind(tt.query); got != tt.want {
				t.Errorf("Rebind() = %v, want %v", got, tt.want)
			}
		})
	}

	q := "SELECT ? , ?"
	if got := (&sqliteDialect{}).Rebind(q); got != q {
		t.Errorf("sqlite Rebind() = %v", got)
	}
}

func TestDialect_UpsertClause(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		cols    []string
		want    string
	}{
		{"sqlite nothing", &sqliteDialect{}, nil, "ON CONFLICT (slot) DO NOTHING"},
		{"sqlite update", &sqliteDialect{}, []string{"data", "updated_at"}, "ON CONFLICT (slot) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at"},
		{"postgres update", &postgresDialect{}, []string{"data"}, "ON CONFLICT (slot) DO UPDATE SET data = EXCLUDED.data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.UpsertClause("slot", tt.cols); got != tt.want {
				t.Errorf("UpsertClause() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDialect_Types(t *testing.T) {
	if got := (&sqliteDialect{}).BlobType(); got != "BLOB" {
		t.Errorf("sqlite BlobType() = %v", got)
	}
	if got := (&postgresDialect{}).BlobType(); got != "BYTEA" {
		t.Errorf("postgres BlobType() = %v", got)
	}
	if len((&sqliteDialect{}).PragmaStatements()) == 0 {
		t.Error("sqlite should have pragmas")
	}
	if (&postgresDialect{}).PragmaStatements() != nil {
		t.Error("postgres should have no pragmas")
	}
}
