// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	strategy TEXT NOT NULL,
	started DATETIME NOT NULL,
	finished DATETIME NOT NULL,
	state TEXT NOT NULL,
	outcome TEXT NOT NULL,
	signal TEXT NOT NULL,
	short_avg REAL NOT NULL,
	long_avg REAL NOT NULL,
	bars INTEGER NOT NULL,
	error TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	order_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	amount TEXT NOT NULL,
	price REAL NOT NULL,
	placed_at DATETIME NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
CREATE INDEX IF NOT EXISTS idx_orders_run ON orders(run_id);
`
