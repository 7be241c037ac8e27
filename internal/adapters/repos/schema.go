package repos

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		id            UUID PRIMARY KEY,
		name          TEXT NOT NULL,
		brand         TEXT NOT NULL,
		state         TEXT NOT NULL CHECK (state IN ('AVAILABLE', 'IN_USE', 'MAINTENANCE')),
		creation_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_brand ON devices (brand)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_state ON devices (state)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_creation_time ON devices (creation_time DESC, id DESC)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		brand         TEXT NOT NULL,
		state         TEXT NOT NULL CHECK (state IN ('AVAILABLE', 'IN_USE', 'MAINTENANCE')),
		creation_time TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_brand ON devices (brand)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_state ON devices (state)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_creation_time ON devices (creation_time DESC, id DESC)`,
}
