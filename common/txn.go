package common

import "context"

// Begin opens a transaction on conn. A rejected boundary invalidates the
// measurement, so the failure is always fatal.
func Begin(ctx context.Context, conn Conn, dialect Dialect) error {
	return boundary(ctx, conn, "begin", dialect.Begin)
}

// Commit closes the open transaction on conn.
func Commit(ctx context.Context, conn Conn, dialect Dialect) error {
	return boundary(ctx, conn, "commit", dialect.Commit)
}

func boundary(ctx context.Context, conn Conn, op, text string) error {
	if err := conn.Exec(ctx, text); err != nil {
		return Fatal(op, text, err)
	}
	return nil
}
