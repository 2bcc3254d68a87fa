package basket

// Schema creates the versioned baskets table and its items
const Schema = `
CREATE TABLE IF NOT EXISTS baskets (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    deactivated_at TEXT
);

CREATE TABLE IF NOT EXISTS basket_items (
    id INTEGER PRIMARY KEY,
    basket_id INTEGER NOT NULL REFERENCES baskets(id),
    ticker TEXT NOT NULL,
    weight_percent TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_basket_items_basket ON basket_items(basket_id);
`
