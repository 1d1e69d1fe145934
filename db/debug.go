package db

import (
	"fmt"
	"sort"
	"strings"
)

// SetSettingsCLI writes several settings atomically against the database at
// dbPath. Used by the offline maintenance commands.
func SetSettingsCLI(dbPath string, values map[string]string) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := StartTransaction(conn)
	if err != nil {
		return err
	}
	for _, k := range sortedKeys(values) {
		if err := PutSettingWithTx(tx, k, values[k]); err != nil {
			RollbackTransaction(tx)
			return err
		}
	}
	return CommitTransaction(tx)
}

// DumpSettingsCLI renders every stored setting as "key = value" lines.
func DumpSettingsCLI(dbPath string) (string, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	all, err := GetAllSettings(conn)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, k := range sortedKeys(all) {
		fmt.Fprintf(&b, "%s = %s\n", k, all[k])
	}
	return b.String(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
