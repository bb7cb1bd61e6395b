// Package recommend derives the per-user feed view (primary pick plus
// ranked alternatives) from a score matrix and the most recent assignment.
package recommend

import (
	"sort"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
	"github.com/opendoor-marketplace/matchengine/internal/scorer"
)

// Build derives recommendations for every user in users. Primary is the
// user's assigned opp if present, else their highest-scoring opp (nil if
// none is feasible). Alternatives are the top-k remaining opps by
// descending score, excluding primary.
func Build(users []domain.User, matrix scorer.Matrix, assignments []domain.Assignment, topK int) map[string]domain.Recommendation {
	assignedOpp := make(map[string]string, len(assignments))
	for _, a := range assignments {
		assignedOpp[a.UserID] = a.OppID
	}

	out := make(map[string]domain.Recommendation, len(users))
	for _, user := range users {
		row := matrix[user.ID]
		type scored struct {
			oppID string
			score float64
		}
		ranked := make([]scored, 0, len(row))
		for oppID, s := range row {
			ranked = append(ranked, scored{oppID, s})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].score != ranked[j].score {
				return ranked[i].score > ranked[j].score
			}
			return ranked[i].oppID < ranked[j].oppID
		})

		var primary *string
		if oppID, ok := assignedOpp[user.ID]; ok {
			p := oppID
			primary = &p
		} else if len(ranked) > 0 {
			p := ranked[0].oppID
			primary = &p
		}

		alternatives := make([]string, 0, topK)
		for _, r := range ranked {
			if primary != nil && r.oppID == *primary {
				continue
			}
			alternatives = append(alternatives, r.oppID)
			if len(alternatives) == topK {
				break
			}
		}

		out[user.ID] = domain.Recommendation{Primary: primary, Alternatives: alternatives}
	}
	return out
}
