// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Cluster is a topical grouping of items produced by the clustering
// stage. Clusters are ephemeral: they exist only for the duration of
// one pipeline run and are never persisted.
type Cluster struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	EditorialAngle       string   `json:"editorial_angle"`
	ItemIDs              []string `json:"item_ids"`
	EstimatedReadMinutes int      `json:"estimated_read_minutes"`
	Priority             int      `json:"priority"` // lower sorts first
}

// ClusterResult is the full output of the clustering stage: the topic
// clusters plus the items flagged as quick bites (low-priority items
// summarized directly in the final assembly instead of getting a full
// article).
type ClusterResult struct {
	Clusters         []Cluster `json:"clusters"`
	QuickBiteItemIDs []string  `json:"quick_bites_item_ids"`
}

// FilterKnown drops any item ID in any cluster or in the quick-bites
// set that is not present in known. The clustering backend can return
// fabricated IDs; membership is validated against the run's input set
// rather than failing the run.
func (r *ClusterResult) FilterKnown(known map[string]bool) {
	for i := range r.Clusters {
		r.Clusters[i].ItemIDs = keepKnown(r.Clusters[i].ItemIDs, known)
	}
	r.QuickBiteItemIDs = keepKnown(r.QuickBiteItemIDs, known)
}

func keepKnown(ids []string, known map[string]bool) []string {
	kept := ids[:0]
	for _, id := range ids {
		if known[id] {
			kept = append(kept, id)
		}
	}
	return kept
}
