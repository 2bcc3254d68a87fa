package ledger

// Schema creates the ledger tables: client holdings, the house residual
// pool and the append-only operation history.
const Schema = `
CREATE TABLE IF NOT EXISTS holdings (
    id INTEGER PRIMARY KEY,
    sub_account_id INTEGER NOT NULL,
    ticker TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 0),
    average_cost TEXT NOT NULL,
    UNIQUE (sub_account_id, ticker)
);

CREATE TABLE IF NOT EXISTS house_pool (
    id INTEGER PRIMARY KEY,
    ticker TEXT NOT NULL UNIQUE,
    quantity INTEGER NOT NULL CHECK (quantity >= 0),
    average_cost TEXT NOT NULL,
    origin TEXT
);

CREATE TABLE IF NOT EXISTS operation_history (
    id INTEGER PRIMARY KEY,
    client_id INTEGER NOT NULL,
    ticker TEXT NOT NULL,
    operation_type TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    unit_price TEXT NOT NULL,
    total_value TEXT NOT NULL,
    operation_date TEXT NOT NULL,
    reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_operation_history_client ON operation_history(client_id);
CREATE INDEX IF NOT EXISTS idx_operation_history_date ON operation_history(operation_date);
`
