package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg unique", &pgconn.PgError{Code: "23505", ConstraintName: "ux_users_email"}, true},
		{"pg other", &pgconn.PgError{Code: "23503"}, false},
		{"wrapped pg unique", fmt.Errorf("creating user: %w", &pgconn.PgError{Code: "23505"}), true},
		{"sqlite unique", errors.New("UNIQUE constraint failed: users.email"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err); got != tc.want {
				t.Fatalf("IsUniqueViolation(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
