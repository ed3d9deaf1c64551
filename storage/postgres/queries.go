package postgres

import "fmt"

// queries holds the statements for one table.
type queries struct {
	findByProductID string
	insert          string
	update          string
	findSimilar     string
}

func newQueries(table string) queries {
	t := quoteTable(table)
	return queries{
		findByProductID: fmt.Sprintf(`SELECT id FROM %s WHERE product_id = $1`, t),
		insert: fmt.Sprintf(`INSERT INTO %s
			(content, assistant_id, account_id, content_vector, product_id, store_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING id`, t),
		update: fmt.Sprintf(`UPDATE %s
			SET content = $1, content_vector = $2, store_id = $3, updated_at = NOW()
			WHERE product_id = $4`, t),
		findSimilar: fmt.Sprintf(`SELECT id, product_id, COALESCE(store_id, ''), content, content_vector,
			assistant_id, account_id, created_at, updated_at, 1 - (content_vector <=> $1) AS score
			FROM %s
			WHERE product_id IS NOT NULL AND content_vector IS NOT NULL
			  AND 1 - (content_vector <=> $1) >= $2
			ORDER BY content_vector <=> $1
			LIMIT $3`, t),
	}
}
