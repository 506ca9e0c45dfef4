package sqlstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlstore "github.com/schedulehq/go-connect/store/sql"
)

func TestOpenSQLiteConnects(t *testing.T) {
	dsn := fmt.Sprintf("file:connect-open-%d?mode=memory&cache=shared", time.Now().UnixNano())
	client, err := sqlstore.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer client.Close()

	var one int
	if err := client.DB().NewRaw("SELECT 1").Scan(context.Background(), &one); err != nil {
		t.Fatalf("probe connection: %v", err)
	}
	if one != 1 {
		t.Fatalf("expected probe result 1, got %d", one)
	}
}

func TestOpenRejectsBadInput(t *testing.T) {
	if _, err := sqlstore.Open(sqlstore.ConnConfig{Driver: sqlstore.DriverSQLite}); err == nil {
		t.Fatalf("expected missing dsn rejection")
	}
	if _, err := sqlstore.Open(sqlstore.ConnConfig{Driver: "mysql", DSN: "dsn"}); err == nil {
		t.Fatalf("expected unsupported driver rejection")
	}
}
