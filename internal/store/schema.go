package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS plans (
    file_path            TEXT PRIMARY KEY,
    name                 TEXT NOT NULL,
    format               TEXT NOT NULL,
    node_count           INTEGER NOT NULL,
    leaf_count           INTEGER NOT NULL,
    depth                INTEGER NOT NULL,
    grand_total          REAL NOT NULL,
    definition           TEXT NOT NULL,
    file_mtime_ns        INTEGER NOT NULL,
    file_size            INTEGER NOT NULL,
    parsed_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS plan_baselines (
    file_path            TEXT NOT NULL REFERENCES plans(file_path) ON DELETE CASCADE,
    node_id              TEXT NOT NULL,
    parent_id            TEXT,
    depth                INTEGER NOT NULL,
    value                REAL NOT NULL,
    PRIMARY KEY (file_path, node_id)
);

CREATE INDEX IF NOT EXISTS idx_plans_name ON plans(name);
`
