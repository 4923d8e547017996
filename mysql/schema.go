package mysql

import "fmt"

const schemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	state_key VARCHAR(191) NOT NULL,
	value %s NOT NULL,
	updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	PRIMARY KEY (state_key),
	INDEX idx_updated_at (updated_at)
);`

const valueBinary = "LONGBLOB"

// Schema returns the key/value table definition.
func Schema(table string) (string, error) {
	name, err := sanitizeTableName(table)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(schemaTemplate, name, valueBinary), nil
}
