package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDumpNilError(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || len(d.Chain) != 0 {
		t.Fatalf("expected zero dump, got %+v", d)
	}
}

func TestDumpCapturesCodeAndChain(t *testing.T) {
	inner := New(CodeStateConflict, "payment already refunded")
	wrapped := fmt.Errorf("transition: %w", inner)

	d := Dump(wrapped)
	if d.Code != CodeStateConflict {
		t.Fatalf("unexpected code: %s", d.Code)
	}
	if d.TopMessage != wrapped.Error() {
		t.Fatalf("unexpected top message: %s", d.TopMessage)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected unwrapped chain, got %v", d.Chain)
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "payments_idempotency_key_key",
		TableName:      "payments",
		Detail:         "Key already exists.",
		Message:        "duplicate key value violates unique constraint",
	}
	d := Dump(fmt.Errorf("insert payment: %w", pgErr))

	if d.PGCode != "23505" {
		t.Fatalf("unexpected pg_code: %s", d.PGCode)
	}
	if d.PGConstraint != "payments_idempotency_key_key" {
		t.Fatalf("unexpected pg_constraint: %s", d.PGConstraint)
	}
	if d.PGTable != "payments" {
		t.Fatalf("unexpected pg_table: %s", d.PGTable)
	}
}
