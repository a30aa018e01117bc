package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// dialect holds the few places where the supported databases disagree.
type dialect struct {
	name       string
	driverName string // database/sql driver name
	like       string // case-insensitive LIKE operator
	// columnsSQL lists the columns of one table in declaration order.
	// It takes a single bound parameter: the table name.
	columnsSQL  string
	quote       func(ident string) string
	placeholder func(n int) string
	day         func(expr string) string
}

var (
	mysqlDialect = dialect{
		name:       "mysql",
		driverName: "mysql",
		like:       "LIKE",
		columnsSQL: `SELECT COLUMN_NAME FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`,
		quote:       func(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" },
		placeholder: func(int) string { return "?" },
		day:         func(expr string) string { return "DATE(" + expr + ")" },
	}

	postgresDialect = dialect{
		name:       "postgres",
		driverName: "pgx",
		like:       "ILIKE",
		columnsSQL: `SELECT column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`,
		quote:       func(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` },
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		day:         func(expr string) string { return "TO_CHAR(CAST(" + expr + " AS DATE), 'YYYY-MM-DD')" },
	}

	sqliteDialect = dialect{
		name:        "sqlite",
		driverName:  "sqlite",
		like:        "LIKE",
		columnsSQL:  `SELECT name FROM pragma_table_info(?) ORDER BY cid`,
		quote:       func(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` },
		placeholder: func(int) string { return "?" },
		day:         func(expr string) string { return "DATE(" + expr + ")" },
	}
)

func dialectFor(name string) (dialect, error) {
	switch strings.ToLower(name) {
	case "mysql", "mariadb":
		return mysqlDialect, nil
	case "postgres", "postgresql", "pgx":
		return postgresDialect, nil
	case "sqlite", "sqlite3":
		return sqliteDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}
