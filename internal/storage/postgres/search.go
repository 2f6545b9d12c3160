package postgres

import (
	"context"
	"fmt"
	"time"

	"cadimport/internal/filter"
)

// Person is the Identity Record summary row returned by a search page.
type Person struct {
	CPF            int64      `json:"cpf"`
	Nome           *string    `json:"nome,omitempty"`
	DataNascimento *time.Time `json:"data_nascimento,omitempty"`
	NomeMae        *string    `json:"nome_mae,omitempty"`
	NomePai        *string    `json:"nome_pai,omitempty"`
}

// Search executes a compiled filter query and its matching count query.
func (s *Store) Search(ctx context.Context, q filter.Query) ([]Person, int64, error) {
	rows, err := s.pool.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search page: %w", err)
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.CPF, &p.Nome, &p.DataNascimento, &p.NomeMae, &p.NomePai); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.pool.QueryRow(ctx, q.CountSQL, q.CountArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("search count: %w", err)
	}
	return out, total, nil
}
