package state

// SQL queries for the world_state key-value table.

const (
	// queryGetState fetches the current value for one key.
	queryGetState = `
		SELECT value
		FROM world_state
		WHERE key = $1
	`

	// queryPutState upserts a key. PutState semantics are last-write-wins;
	// existence guarding happens in the contract layer, not here.
	queryPutState = `
		INSERT INTO world_state (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`

	// queryDelState removes a key. Deleting an absent key affects zero rows
	// and is not an error.
	queryDelState = `
		DELETE FROM world_state
		WHERE key = $1
	`

	// queryRangeState scans keys in lexicographic order. Empty bounds are
	// passed as empty strings and disable the corresponding comparison, so
	// ('', '') is a full scan.
	queryRangeState = `
		SELECT key, value
		FROM world_state
		WHERE ($1 = '' OR key >= $1)
		  AND ($2 = '' OR key < $2)
		ORDER BY key ASC
	`
)
