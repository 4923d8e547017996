package mysql

import "fmt"

type queries struct {
	load   string
	save   string
	delete string
	list   string
}

func newQueries(table string) queries {
	return queries{
		load: fmt.Sprintf("SELECT value FROM %s WHERE state_key = ?", table),
		save: fmt.Sprintf(
			"INSERT INTO %s (state_key, value, updated_at) VALUES (?, ?, ?) AS incoming "+
				"ON DUPLICATE KEY UPDATE value = incoming.value, updated_at = incoming.updated_at",
			table,
		),
		delete: fmt.Sprintf("DELETE FROM %s WHERE state_key = ?", table),
		list:   fmt.Sprintf("SELECT state_key, LENGTH(value), updated_at FROM %s ORDER BY state_key", table),
	}
}
