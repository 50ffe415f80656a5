package db

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	"modernc.org/sqlite"
)

// SQLiteLowerFunc folds case with Go's Unicode tables. SQLite's own lower()
// only knows ASCII, so search would miss "été" in "ÉTÉ".
const SQLiteLowerFunc = "go_lower"

var registerFuncs = sync.OnceValue(func() error {
	return sqlite.RegisterDeterministicScalarFunction(SQLiteLowerFunc, 1, goLower)
})

func goLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument %T", SQLiteLowerFunc, v)
	}
}
