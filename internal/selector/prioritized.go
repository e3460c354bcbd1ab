package selector

import "sort"

// Token identifies a registration so it can be removed again.
type Token uint64

type entry[F any] struct {
	token    Token
	priority int
	value    F
}

// prioritized keeps values ordered by priority, then by registration order.
// Tokens double as sequence numbers.
type prioritized[F any] struct {
	entries []entry[F]
	next    Token
}

func (p *prioritized[F]) add(priority int, value F) Token {
	p.next++
	idx := sort.Search(len(p.entries), func(i int) bool {
		return p.entries[i].priority > priority
	})
	p.entries = append(p.entries, entry[F]{})
	copy(p.entries[idx+1:], p.entries[idx:])
	p.entries[idx] = entry[F]{token: p.next, priority: priority, value: value}
	return p.next
}

func (p *prioritized[F]) remove(token Token) bool {
	for i, e := range p.entries {
		if e.token == token {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (p *prioritized[F]) values() []F {
	out := make([]F, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.value
	}
	return out
}
