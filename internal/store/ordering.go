package store

import (
	"errors"
	"fmt"

	"concord/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Channels and roles within a guild form an intrusive singly-linked list:
// each row's is_above points at the row immediately beneath it, the
// bottom-most row points nowhere. Mutations are O(1) pointer writes and run
// inside one transaction; materializing walks the chain in memory.

// ErrChainCorrupt means the is_above relation is not a single chain (cycle
// or double head). That is never a normal state.
var ErrChainCorrupt = errors.New("ordering chain corrupt")

// chainLink makes the freshly inserted row the new tail: whatever used to be
// the tail now points at it. The new row must already exist with a nil
// is_above.
func chainLink(db *gorm.DB, model any, guildID domain.GuildID, newID uuid.UUID) error {
	return db.Model(model).
		Where("guild_id = ? AND is_above IS NULL AND id <> ?", guildID, newID).
		Update("is_above", newID).Error
}

// chainMove re-homes target so that newBelow sits immediately beneath it;
// a nil newBelow moves target to the bottom of the chain.
func chainMove(db *gorm.DB, model any, guildID domain.GuildID, target uuid.UUID, newBelow *uuid.UUID) error {
	if newBelow != nil && *newBelow == target {
		return fmt.Errorf("%w: cannot order a row against itself", domain.ErrBadRequest)
	}

	var old struct{ IsAbove *uuid.UUID }
	if err := db.Model(model).
		Where("guild_id = ? AND id = ?", guildID, target).
		Select("is_above").
		Take(&old).Error; err != nil {
		return notFound(err)
	}
	if equalPtr(old.IsAbove, newBelow) {
		return nil
	}
	if newBelow != nil {
		var n int64
		if err := db.Model(model).
			Where("guild_id = ? AND id = ?", guildID, *newBelow).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: ordering anchor not in guild", domain.ErrBadRequest)
		}
	}

	// The row currently sitting above target, if any; it gets re-spliced
	// onto target's old pointer once target has moved.
	var prev struct{ ID uuid.UUID }
	hasPrev := true
	if err := db.Model(model).
		Where("guild_id = ? AND is_above = ?", guildID, target).
		Select("id").
		Take(&prev).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		hasPrev = false
	}

	// Whoever previously claimed newBelow (or the tail slot) now points at
	// target instead.
	repoint := db.Model(model).Where("guild_id = ? AND id <> ?", guildID, target)
	if newBelow != nil {
		repoint = repoint.Where("is_above = ?", *newBelow)
	} else {
		repoint = repoint.Where("is_above IS NULL")
	}
	if err := repoint.Update("is_above", target).Error; err != nil {
		return err
	}

	if err := db.Model(model).
		Where("guild_id = ? AND id = ?", guildID, target).
		Update("is_above", newBelow).Error; err != nil {
		return err
	}

	if hasPrev {
		return db.Model(model).
			Where("guild_id = ? AND id = ?", guildID, prev.ID).
			Update("is_above", old.IsAbove).Error
	}
	return nil
}

// chainRemove splices target out ahead of its deletion.
func chainRemove(db *gorm.DB, model any, guildID domain.GuildID, target uuid.UUID) error {
	var old struct{ IsAbove *uuid.UUID }
	if err := db.Model(model).
		Where("guild_id = ? AND id = ?", guildID, target).
		Select("is_above").
		Take(&old).Error; err != nil {
		return notFound(err)
	}
	return db.Model(model).
		Where("guild_id = ? AND is_above = ?", guildID, target).
		Update("is_above", old.IsAbove).Error
}

func equalPtr(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// orderChain materializes a chain top to bottom. An empty set yields an
// empty sequence; a cycle or double head yields ErrChainCorrupt.
func orderChain[T any](rows []T, id func(T) uuid.UUID, above func(T) *uuid.UUID) ([]T, error) {
	if len(rows) == 0 {
		return []T{}, nil
	}
	byID := make(map[uuid.UUID]T, len(rows))
	pointed := make(map[uuid.UUID]bool, len(rows))
	for _, r := range rows {
		byID[id(r)] = r
		if a := above(r); a != nil {
			pointed[*a] = true
		}
	}

	var head T
	heads := 0
	for _, r := range rows {
		if !pointed[id(r)] {
			head = r
			heads++
		}
	}
	if heads != 1 {
		return nil, ErrChainCorrupt
	}

	out := make([]T, 0, len(rows))
	cur, ok := head, true
	for ok {
		out = append(out, cur)
		if len(out) > len(rows) {
			return nil, ErrChainCorrupt
		}
		a := above(cur)
		if a == nil {
			break
		}
		cur, ok = byID[*a]
		if !ok {
			return nil, ErrChainCorrupt
		}
	}
	if len(out) != len(rows) {
		return nil, ErrChainCorrupt
	}
	return out, nil
}
