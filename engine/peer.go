package engine

import (
	"sort"
)

// Peer compatibility weights.
const (
	weightInterests    = 0.30
	weightExperiences  = 0.25
	weightCommStyle    = 0.20
	weightActivitySim  = 0.15
	weightAgeRange     = 0.10
)

// Compatibility thresholds for peer match kinds.
const (
	partnerThreshold = 0.7
	mentorThreshold  = 0.5
)

const (
	MatchSupportPartner   = "support_partner"
	MatchMentorConnection = "mentor_connection"
)

// jaccard computes |a∩b| / |a∪b| over string sets. Two empty sets score 0.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := map[string]bool{}
	for _, v := range a {
		setA[v] = true
	}
	intersection := 0
	union := len(setA)
	seenB := map[string]bool{}
	for _, v := range b {
		if seenB[v] {
			continue
		}
		seenB[v] = true
		if setA[v] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// peerCompatibility scores how well a candidate matches the user. Partial
// credit applies when communication styles or age ranges differ, so a single
// mismatched trait never zeroes the score.
func peerCompatibility(self, candidate *PeerCandidate) float64 {
	commStyle := 0.5
	if self.CommunicationStyle != "" && self.CommunicationStyle == candidate.CommunicationStyle {
		commStyle = 1
	}
	ageRange := 0.3
	if self.AgeRange != "" && self.AgeRange == candidate.AgeRange {
		ageRange = 1
	}

	score := weightInterests*jaccard(self.Interests, candidate.Interests) +
		weightExperiences*jaccard(self.Experiences, candidate.Experiences) +
		weightCommStyle*commStyle +
		weightActivitySim*jaccard(self.ActiveBuckets, candidate.ActiveBuckets) +
		weightAgeRange*ageRange
	return clamp01(score)
}

// matchKindForScore classifies a compatibility score into a match kind,
// or "" when the candidate does not qualify.
func matchKindForScore(score float64) string {
	switch {
	case score > partnerThreshold:
		return MatchSupportPartner
	case score >= mentorThreshold:
		return MatchMentorConnection
	default:
		return ""
	}
}

// generatePeerRecommendations scores candidates against the user's own peer
// profile and keeps those qualifying as partners or mentors.
func generatePeerRecommendations(self *PeerCandidate, candidates []PeerCandidate) []Recommendation {
	if self == nil {
		return nil
	}

	recommendations := []Recommendation{}
	for i := range candidates {
		candidate := &candidates[i]
		score := peerCompatibility(self, candidate)
		kind := matchKindForScore(score)
		if kind == "" {
			continue
		}
		reason := "a member at a similar point in their journey"
		if kind == MatchSupportPartner {
			reason = "you share interests and habits"
		}
		recommendations = append(recommendations, Recommendation{
			Category:   CategoryPeer,
			Type:       "peer_connection",
			Score:      score,
			Reason:     reason,
			Priority:   priorityForScore(score),
			Source:     SourceRule,
			Confidence: score,
			PeerID:     candidate.ID,
			MatchKind:  kind,
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		return recommendations[i].PeerID < recommendations[j].PeerID
	})
	return recommendations
}

// mergePeerRecommendations combines provider and rule-based peer lists by
// peer id. Provider entries come first; a rule-based entry is appended only
// when its peer id was not already suggested.
func mergePeerRecommendations(fromProvider, fromRules []Recommendation) []Recommendation {
	merged := make([]Recommendation, 0, len(fromProvider)+len(fromRules))
	seen := map[string]bool{}
	for _, rec := range fromProvider {
		if rec.PeerID == "" || seen[rec.PeerID] {
			continue
		}
		seen[rec.PeerID] = true
		merged = append(merged, rec)
	}
	for _, rec := range fromRules {
		if rec.PeerID == "" || seen[rec.PeerID] {
			continue
		}
		seen[rec.PeerID] = true
		merged = append(merged, rec)
	}
	return merged
}
