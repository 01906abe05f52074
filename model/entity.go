package model

import (
	"fmt"
	"strconv"
	"strings"
)

// EntityID addresses an account, file or node on the ledger as shard.realm.num.
type EntityID struct {
	Shard uint64
	Realm uint64
	Num   uint64
}

// ParseEntityID parses the canonical "shard.realm.num" form.
func ParseEntityID(s string) (EntityID, error) {
	raw := strings.TrimSpace(s)
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return EntityID{}, Errorf(CodeInvalidEntityID, "entity id %q: expected shard.realm.num", s)
	}
	var out [3]uint64
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return EntityID{}, Wrap(CodeInvalidEntityID, fmt.Sprintf("entity id %q: invalid component %q", s, p), err)
		}
		out[i] = v
	}
	return EntityID{Shard: out[0], Realm: out[1], Num: out[2]}, nil
}

// MustParseEntityID is like ParseEntityID but panics on error.
func MustParseEntityID(s string) EntityID {
	id, err := ParseEntityID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id EntityID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Shard, id.Realm, id.Num)
}

// IsZero reports whether id is 0.0.0, which never names a real entity.
func (id EntityID) IsZero() bool {
	return id == EntityID{}
}
