// Package clustering groups candidate edges into duplicate clusters
package clustering

import (
	"sort"

	"github.com/Ramsey-B/clover/pkg/models"
)

// unionFind is a disjoint-set over listing ids with path compression
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

func (u *unionFind) find(id string) string {
	root, ok := u.parent[id]
	if !ok {
		u.parent[id] = id
		return id
	}
	if root == id {
		return id
	}
	root = u.find(root)
	u.parent[id] = root
	return root
}

func (u *unionFind) union(a, b string) {
	rootA := u.find(a)
	rootB := u.find(b)
	if rootA == rootB {
		return
	}
	if u.rank[rootA] < u.rank[rootB] {
		rootA, rootB = rootB, rootA
	}
	u.parent[rootB] = rootA
	if u.rank[rootA] == u.rank[rootB] {
		u.rank[rootA]++
	}
}

// Build partitions candidate edges into connected groups. Only edges
// at or above minScore connect listings; weaker edges are ignored but
// still attached to the group they fall inside. Groups are returned in
// deterministic order (by smallest member id) with sorted members.
func Build(edges []models.DedupCandidate, minScore float64) []models.DedupGroup {
	uf := newUnionFind()
	for _, edge := range edges {
		if edge.Score < minScore {
			continue
		}
		uf.union(edge.ListingAID, edge.ListingBID)
	}

	memberSets := make(map[string][]string)
	for id := range uf.parent {
		root := uf.find(id)
		memberSets[root] = append(memberSets[root], id)
	}

	groups := make([]models.DedupGroup, 0, len(memberSets))
	for _, members := range memberSets {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)

		inGroup := make(map[string]bool, len(members))
		for _, id := range members {
			inGroup[id] = true
		}

		var groupEdges []models.DedupCandidate
		for _, edge := range edges {
			if inGroup[edge.ListingAID] && inGroup[edge.ListingBID] {
				groupEdges = append(groupEdges, edge)
			}
		}

		groups = append(groups, models.DedupGroup{
			Members: members,
			Edges:   groupEdges,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Members[0] < groups[j].Members[0]
	})

	return groups
}

// SelectCanonical picks the survivor of a group: the most complete
// listing, then the most recently seen, then the lowest id. The
// ordering is total so repeated runs pick the same survivor.
func SelectCanonical(listings []*models.Listing) *models.Listing {
	if len(listings) == 0 {
		return nil
	}

	best := listings[0]
	for _, candidate := range listings[1:] {
		if moreCanonical(candidate, best) {
			best = candidate
		}
	}
	return best
}

func moreCanonical(a, b *models.Listing) bool {
	ca := completeness(a)
	cb := completeness(b)
	if ca != cb {
		return ca > cb
	}
	if !a.LastSeenAt.Equal(b.LastSeenAt) {
		return a.LastSeenAt.After(b.LastSeenAt)
	}
	return a.ID < b.ID
}

// completeness counts the populated financial and location fields
func completeness(l *models.Listing) int {
	count := 0
	if l.AnnualRevenue != nil {
		count++
	}
	if l.EBITDA != nil {
		count++
	}
	if l.AskingPrice != nil {
		count++
	}
	if l.Address != nil {
		count++
	}
	return count
}
