package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PersonalizationRecord is the relational-store view of a member's allergies,
// dislikes, utensils, and household names, unioned across every family
// member linked to them.
type PersonalizationRecord struct {
	MemberID  uuid.UUID
	Names     []string
	Allergies []string
	Dislikes  []string
	Utensils  []string
}

// LoadPersonalization fetches and unions personalization data across a
// member and every family member linked to them. Returns an empty record
// (no error) when the member has no rows yet, since an unauthenticated
// caller may never have been persisted.
func (c *Client) LoadPersonalization(ctx context.Context, memberID uuid.UUID) (*PersonalizationRecord, error) {
	rec := &PersonalizationRecord{MemberID: memberID}

	nameRows, err := c.db.QueryContext(ctx,
		`SELECT name FROM family_member WHERE member_id = $1 ORDER BY name`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load family member names: %w", err)
	}
	defer nameRows.Close()
	for nameRows.Next() {
		var name string
		if err := nameRows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan family member name: %w", err)
		}
		rec.Names = append(rec.Names, name)
	}
	if err := nameRows.Err(); err != nil {
		return nil, err
	}

	rec.Allergies, err = c.unionIngredients(ctx, "allergy", memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load allergies: %w", err)
	}

	rec.Dislikes, err = c.unionIngredients(ctx, "dislike", memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dislikes: %w", err)
	}

	utensilRows, err := c.db.QueryContext(ctx,
		`SELECT DISTINCT name FROM utensil WHERE member_id = $1 ORDER BY name`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load utensils: %w", err)
	}
	defer utensilRows.Close()
	for utensilRows.Next() {
		var name string
		if err := utensilRows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan utensil name: %w", err)
		}
		rec.Utensils = append(rec.Utensils, name)
	}
	if err := utensilRows.Err(); err != nil {
		return nil, err
	}

	return rec, nil
}

// unionIngredients returns the distinct ingredient names across every
// family_member row linked to memberID, from either the "allergy" or
// "dislike" table. The table name is restricted to these two internal
// constants, never caller input, so string formatting here is safe.
func (c *Client) unionIngredients(ctx context.Context, table string, memberID uuid.UUID) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT DISTINCT t.ingredient
		 FROM %s t
		 JOIN family_member fm ON fm.id = t.family_member_id
		 WHERE fm.member_id = $1
		 ORDER BY t.ingredient`, table)

	rows, err := c.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
