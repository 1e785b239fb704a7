package anchor

import (
	"slices"

	"seals.dev/anchor/commit"
)

// MaxContracts is the protocol bound on contracts in one anchor.
const MaxContracts = 0xFFFF

type entry struct {
	id  commit.ContractId
	sub SubAnchor
}

// ContractMap is an ordered, bounded map from contract id to SubAnchor.
// The zero value is empty and uses MaxContracts as its bound.
type ContractMap struct {
	bound   int
	entries []entry // sorted by id
}

func NewContractMap(bound int) ContractMap {
	if bound <= 0 || bound > MaxContracts {
		bound = MaxContracts
	}
	return ContractMap{bound: bound}
}

func (m *ContractMap) Bound() int {
	if m.bound == 0 {
		return MaxContracts
	}
	return m.bound
}

func (m *ContractMap) Len() int { return len(m.entries) }

func (m *ContractMap) search(id commit.ContractId) (int, bool) {
	return slices.BinarySearchFunc(m.entries, id, func(e entry, id commit.ContractId) int {
		return e.id.Compare(id)
	})
}

// Insert adds a contract. Repeated ids and inserts past the bound fail.
func (m *ContractMap) Insert(id commit.ContractId, sub SubAnchor) error {
	i, found := m.search(id)
	if found {
		return commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "contract %s listed twice", id)
	}
	if len(m.entries) >= m.Bound() {
		return commit.Errf(commit.ANCHOR_ERR_BOUND_EXCEEDED, "more than %d contracts", m.Bound())
	}
	m.entries = slices.Insert(m.entries, i, entry{id: id, sub: sub})
	return nil
}

func (m *ContractMap) Get(id commit.ContractId) (SubAnchor, bool) {
	i, found := m.search(id)
	if !found {
		return SubAnchor{}, false
	}
	return m.entries[i].sub, true
}

// Ids returns the contract ids in ascending order.
func (m *ContractMap) Ids() []commit.ContractId {
	out := make([]commit.ContractId, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.id)
	}
	return out
}

func (m *ContractMap) Each(fn func(commit.ContractId, SubAnchor) error) error {
	for _, e := range m.entries {
		if err := fn(e.id, e.sub); err != nil {
			return err
		}
	}
	return nil
}
