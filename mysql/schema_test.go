package mysql

import (
	"strings"
	"testing"
)

func TestSchema(t *testing.T) {
	schema, err := Schema("analytics.tracker_state")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS analytics.tracker_state") {
		t.Fatalf("expected qualified table name in schema")
	}
	if !strings.Contains(schema, "value LONGBLOB") {
		t.Fatalf("expected LONGBLOB value in schema")
	}
	if !strings.Contains(schema, "PRIMARY KEY (state_key)") {
		t.Fatalf("expected key primary key")
	}
}

func TestSchemaRejectsInvalidTable(t *testing.T) {
	if _, err := Schema("state;drop"); err == nil {
		t.Fatalf("expected invalid table error")
	}
}
