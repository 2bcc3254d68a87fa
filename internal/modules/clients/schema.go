package clients

// Schema creates the clients and sub_accounts tables
const Schema = `
CREATE TABLE IF NOT EXISTS clients (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    document TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL,
    monthly_value TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 0,
    join_date TEXT NOT NULL,
    exit_date TEXT
);

CREATE TABLE IF NOT EXISTS sub_accounts (
    id INTEGER PRIMARY KEY,
    client_id INTEGER NOT NULL UNIQUE REFERENCES clients(id),
    account_number TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL
);
`
